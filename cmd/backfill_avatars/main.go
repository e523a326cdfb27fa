package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/classpoint/classpoint-backend/internal/db"
	"github.com/classpoint/classpoint-backend/internal/logger"
	"github.com/classpoint/classpoint-backend/internal/repos"
	"github.com/classpoint/classpoint-backend/internal/services"
	"github.com/classpoint/classpoint-backend/internal/types"
)

type idList []string

func (l *idList) String() string { return strings.Join(*l, ",") }
func (l *idList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

// Regenerates missing student avatars. Students created while the bucket
// was unconfigured end up with an empty avatar_url; this walks them and
// fills the gap.
func main() {
	var classes idList
	var dryRun bool
	var limit int
	var force bool
	flag.Var(&classes, "class", "class_id to backfill (repeatable, default all)")
	flag.BoolVar(&dryRun, "dry-run", false, "print planned uploads without writing")
	flag.IntVar(&limit, "limit", 0, "limit number of students processed")
	flag.BoolVar(&force, "force", false, "regenerate even when an avatar already exists")
	flag.Parse()

	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	dbService, err := db.NewPostgresService(log)
	if err != nil {
		fmt.Printf("init db: %v\n", err)
		os.Exit(1)
	}

	bucketService, err := services.NewBucketService(log)
	if err != nil {
		fmt.Printf("init bucket: %v\n", err)
		os.Exit(1)
	}
	avatarService, err := services.NewAvatarService(log, bucketService)
	if err != nil {
		fmt.Printf("init avatar: %v\n", err)
		os.Exit(1)
	}

	studentRepo := repos.NewStudentRepo(dbService.DB(), log)

	ctx := context.Background()

	var students []*types.Student
	if len(classes) > 0 {
		for _, raw := range classes {
			classID, err := uuid.Parse(strings.TrimSpace(raw))
			if err != nil || classID == uuid.Nil {
				fmt.Printf("skipping invalid class_id %q\n", raw)
				continue
			}
			rows, err := studentRepo.GetByClassID(ctx, nil, classID)
			if err != nil {
				fmt.Printf("load students for class %s: %v\n", classID, err)
				os.Exit(1)
			}
			students = append(students, rows...)
		}
	} else {
		if err := dbService.DB().WithContext(ctx).Find(&students).Error; err != nil {
			fmt.Printf("load students: %v\n", err)
			os.Exit(1)
		}
	}

	processed := 0
	for _, student := range students {
		if student == nil || student.ID == uuid.Nil {
			continue
		}
		if !force && strings.TrimSpace(student.AvatarURL) != "" {
			continue
		}
		if limit > 0 && processed >= limit {
			break
		}
		processed++

		if dryRun {
			fmt.Printf("[dry-run] regenerate avatar student_id=%s name=%q\n", student.ID.String(), student.Name)
			continue
		}
		if err := avatarService.CreateAndUploadStudentAvatar(ctx, student); err != nil {
			fmt.Printf("avatar for %s: %v\n", student.ID.String(), err)
			continue
		}
		if err := studentRepo.Save(ctx, nil, student); err != nil {
			fmt.Printf("save student %s: %v\n", student.ID.String(), err)
			continue
		}
		fmt.Printf("regenerated avatar student_id=%s key=%s\n", student.ID.String(), student.AvatarBucketKey)
	}

	fmt.Printf("done: %d students processed\n", processed)
}
