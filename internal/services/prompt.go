package services

import (
  "encoding/json"
  "fmt"
)

// The assistant is primed once per session with the classroom data and the
// exact reply template the command parser understands. Keeping the template
// wording here and the parser regex in command.go in sync is what makes the
// chat pipeline work end to end.

const classInstructions = `Eres un asistente que puede interpretar comandos y decidir si tiene la información para ejecutarlos. Puedes completar la información basándote en la lista de datos que tienes.

Base de datos: %s

Reglas:
1. Ejemplo: "Añade 10 puntos a Juan y María en comportamiento." Respuesta: "Ok. Juan Pérez y María Gómez +10 puntos en Comportamiento".
2. Comprueba antes de responder si los nombres que te doy están repetidos en la base de datos. Si el nombre se repite, pregunta a cuál de los posibles nombres me refiero. Si sólo hay una persona con ese nombre, no preguntes.
3. Si ya sabes que puedes llevar a cabo el comando, responde exactamente así: Ok. Nombre del estudiante + o - los puntos en categoría.
4. Si te doy más de un nombre responde así: Ok. Nombre, Nombre y Nombre + o - los puntos en categoría. Por ejemplo: Ok. Pedro Pérez +10 puntos en Participación. Otro ejemplo: Ok. Pedro Pérez y Álvaro Morata -10 puntos en Tareas.`

const dashboardInstructions = `Eres un asistente que conoce la base de datos de un usuario, profesor, que tiene varias clases.

Base de datos: %s`

// BuildClassContext renders the priming message for an in-class session
// from the current roster snapshot.
func BuildClassContext(classData any) string {
  return fmt.Sprintf(classInstructions, mustJSON(classData))
}

// BuildDashboardContext renders the priming message for a dashboard
// session from the teacher's class list.
func BuildDashboardContext(userData any) string {
  return fmt.Sprintf(dashboardInstructions, mustJSON(userData))
}

func mustJSON(v any) string {
  raw, err := json.Marshal(v)
  if err != nil {
    return fmt.Sprintf("%v", v)
  }
  return string(raw)
}
