package services

import (
  "context"
  "errors"
  "fmt"

  "github.com/google/uuid"
  "golang.org/x/sync/errgroup"
  "gorm.io/gorm"

  "github.com/classpoint/classpoint-backend/internal/logger"
  "github.com/classpoint/classpoint-backend/internal/normalization"
  "github.com/classpoint/classpoint-backend/internal/repos"
  "github.com/classpoint/classpoint-backend/internal/types"
)

var (
  ErrClassNameTaken     = errors.New("class name already in use")
  ErrNotClassTeacher    = errors.New("user is not the teacher of this class")
  ErrChallengeNotFound  = errors.New("challenge not found in this class")
  ErrIconStorageMissing = errors.New("icon storage is not configured")
)

type SubcategoryInput struct {
  ID     *uuid.UUID `json:"id"`
  Name   string     `json:"name" binding:"required"`
  Weight float64    `json:"weight"`
}

type CategoryInput struct {
  ID            *uuid.UUID         `json:"id"`
  Name          string             `json:"name" binding:"required"`
  Weight        float64            `json:"weight"`
  Subcategories []SubcategoryInput `json:"subcategories"`
}

type ChallengeInput struct {
  ID          *uuid.UUID `json:"id"`
  Name        string     `json:"name" binding:"required"`
  Description *string    `json:"description"`
  IconPath    *string    `json:"icon_path"`
  Level       int        `json:"level"`
}

type ItemInput struct {
  ID                *uuid.UUID `json:"id"`
  Name              string     `json:"name" binding:"required"`
  Description       *string    `json:"description"`
  Price             float64    `json:"price"`
  ExpirationEnabled bool       `json:"expirationEnabled"`
  ExpirationTime    *int       `json:"expirationTime"`
  UsesEnabled       bool       `json:"usesEnabled"`
  Uses              *int       `json:"uses"`
  Icon              *string    `json:"icon"`
}

// ClassSettingsInput is the full desired state of a class. Categories,
// challenges and items not present in the payload are deleted.
type ClassSettingsInput struct {
  Name                    string           `json:"name" binding:"required"`
  AcademicYear            *int             `json:"academic_year"`
  Group                   *string          `json:"group"`
  Subject                 *string          `json:"subject"`
  IsInvitationCodeEnabled bool             `json:"is_invitation_code_enabled"`
  InvitationLink          *string          `json:"invitation_link"`
  InvitationCode          *string          `json:"invitation_code"`
  Categories              []CategoryInput  `json:"categories"`
  Challenges              []ChallengeInput `json:"challenges"`
  Items                   []ItemInput      `json:"items"`
}

type SubcategoryDetail struct {
  ID     uuid.UUID `json:"id"`
  Name   string    `json:"name"`
  Weight float64   `json:"weight"`
}

type CategoryDetail struct {
  ID            uuid.UUID           `json:"id"`
  Name          string              `json:"name"`
  Weight        float64             `json:"weight"`
  Subcategories []SubcategoryDetail `json:"subcategories"`
}

type ClassMemberDetail struct {
  ID   uuid.UUID `json:"id"`
  Name string    `json:"name"`
  Role string    `json:"role"`
}

type ClassDetail struct {
  ID                      uuid.UUID          `json:"id"`
  Name                    string             `json:"name"`
  Description             string             `json:"description"`
  AcademicYear            *int               `json:"academic_year"`
  Group                   *string            `json:"group"`
  Subject                 *string            `json:"subject"`
  IsInvitationCodeEnabled bool               `json:"is_invitation_code_enabled"`
  InvitationLink          *string            `json:"invitation_link"`
  InvitationCode          *string            `json:"invitation_code"`
  Members                 []ClassMemberDetail `json:"members"`
  Categories              []CategoryDetail   `json:"categories"`
  Challenges              []*types.Challenge `json:"challenges"`
  Items                   []*types.Item      `json:"items"`
}

type ClassService interface {
  CreateClass(ctx context.Context, userID uuid.UUID, name, description string) (*types.Class, error)
  GetUserClasses(ctx context.Context, userID uuid.UUID) ([]*types.Class, error)
  GetClassDetail(ctx context.Context, classID uuid.UUID) (*ClassDetail, error)
  DeleteClass(ctx context.Context, userID, classID uuid.UUID) error
  UpdateClassSettings(ctx context.Context, userID, classID uuid.UUID, input *ClassSettingsInput) (*ClassDetail, error)
  UploadChallengeIcon(ctx context.Context, userID, classID, challengeID uuid.UUID, raw []byte) (*types.Challenge, error)
}

type classService struct {
  db              *gorm.DB
  log             *logger.Logger
  classRepo       repos.ClassRepo
  classMemberRepo repos.ClassMemberRepo
  categoryRepo    repos.CategoryRepo
  challengeRepo   repos.ChallengeRepo
  itemRepo        repos.ItemRepo
  avatarService   AvatarService
}

func NewClassService(
  db *gorm.DB,
  log *logger.Logger,
  classRepo repos.ClassRepo,
  classMemberRepo repos.ClassMemberRepo,
  categoryRepo repos.CategoryRepo,
  challengeRepo repos.ChallengeRepo,
  itemRepo repos.ItemRepo,
  avatarService AvatarService,
) ClassService {
  serviceLog := log.With("service", "ClassService")
  return &classService{
    db:              db,
    log:             serviceLog,
    classRepo:       classRepo,
    classMemberRepo: classMemberRepo,
    categoryRepo:    categoryRepo,
    challengeRepo:   challengeRepo,
    itemRepo:        itemRepo,
    avatarService:   avatarService,
  }
}

func (cs *classService) CreateClass(ctx context.Context, userID uuid.UUID, name, description string) (*types.Class, error) {
  name = normalization.CollapseSpaces(name)
  if name == "" {
    return nil, fmt.Errorf("A class name is required")
  }

  exists, err := cs.classRepo.NameExistsForUser(ctx, nil, userID, name)
  if err != nil {
    return nil, fmt.Errorf("Failed to check class name: %w", err)
  }
  if exists {
    return nil, ErrClassNameTaken
  }

  class := &types.Class{
    Name:        name,
    Description: description,
  }
  err = cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    created, ccErr := cs.classRepo.Create(ctx, tx, []*types.Class{class})
    if ccErr != nil {
      return fmt.Errorf("Failed to create class: %w", ccErr)
    }
    class = created[0]
    member := &types.ClassMember{
      ClassID: class.ID,
      UserID:  userID,
      Role:    "teacher",
    }
    if _, cmErr := cs.classMemberRepo.Create(ctx, tx, []*types.ClassMember{member}); cmErr != nil {
      return fmt.Errorf("Failed to create class membership: %w", cmErr)
    }
    return nil
  })
  if err != nil {
    return nil, err
  }
  return class, nil
}

func (cs *classService) GetUserClasses(ctx context.Context, userID uuid.UUID) ([]*types.Class, error) {
  classes, err := cs.classRepo.GetByUserID(ctx, nil, userID)
  if err != nil {
    return nil, fmt.Errorf("Failed to load user classes: %w", err)
  }
  return classes, nil
}

func (cs *classService) GetClassDetail(ctx context.Context, classID uuid.UUID) (*ClassDetail, error) {
  classes, err := cs.classRepo.GetByIDs(ctx, nil, []uuid.UUID{classID})
  if err != nil {
    return nil, fmt.Errorf("Failed to load class: %w", err)
  }
  if len(classes) == 0 {
    return nil, ErrClassNotFound
  }
  class := classes[0]

  var (
    members    []*types.ClassMember
    topLevel   []*types.Category
    challenges []*types.Challenge
    items      []*types.Item
  )

  group, groupCtx := errgroup.WithContext(ctx)
  group.Go(func() error {
    var err error
    members, err = cs.classMemberRepo.GetByClassID(groupCtx, nil, classID)
    return err
  })
  group.Go(func() error {
    var err error
    topLevel, err = cs.categoryRepo.GetTopLevelByClassID(groupCtx, nil, classID)
    return err
  })
  group.Go(func() error {
    var err error
    challenges, err = cs.challengeRepo.GetByClassID(groupCtx, nil, classID)
    return err
  })
  group.Go(func() error {
    var err error
    items, err = cs.itemRepo.GetByClassID(groupCtx, nil, classID)
    return err
  })
  if err := group.Wait(); err != nil {
    return nil, fmt.Errorf("Failed to load class detail: %w", err)
  }

  memberDetails := make([]ClassMemberDetail, 0, len(members))
  for _, member := range members {
    name := ""
    if member.User != nil {
      name = member.User.Username
    }
    memberDetails = append(memberDetails, ClassMemberDetail{
      ID:   member.UserID,
      Name: name,
      Role: member.Role,
    })
  }

  categoryDetails := make([]CategoryDetail, 0, len(topLevel))
  for _, category := range topLevel {
    children, err := cs.categoryRepo.GetChildren(ctx, nil, category.ID)
    if err != nil {
      return nil, fmt.Errorf("Failed to load subcategories: %w", err)
    }
    subs := make([]SubcategoryDetail, 0, len(children))
    for _, child := range children {
      subs = append(subs, SubcategoryDetail{ID: child.ID, Name: child.Name, Weight: child.Weight})
    }
    categoryDetails = append(categoryDetails, CategoryDetail{
      ID:            category.ID,
      Name:          category.Name,
      Weight:        category.Weight,
      Subcategories: subs,
    })
  }

  return &ClassDetail{
    ID:                      class.ID,
    Name:                    class.Name,
    Description:             class.Description,
    AcademicYear:            class.AcademicYear,
    Group:                   class.Group,
    Subject:                 class.Subject,
    IsInvitationCodeEnabled: class.InviteCodeEnabled,
    InvitationLink:          class.InviteLink,
    InvitationCode:          class.InviteCode,
    Members:                 memberDetails,
    Categories:              categoryDetails,
    Challenges:              challenges,
    Items:                   items,
  }, nil
}

func (cs *classService) DeleteClass(ctx context.Context, userID, classID uuid.UUID) error {
  classes, err := cs.classRepo.GetByIDs(ctx, nil, []uuid.UUID{classID})
  if err != nil {
    return fmt.Errorf("Failed to load class: %w", err)
  }
  if len(classes) == 0 {
    return ErrClassNotFound
  }

  membership, err := cs.classMemberRepo.GetTeacherMembership(ctx, nil, classID, userID)
  if err != nil {
    return fmt.Errorf("Failed to check class membership: %w", err)
  }
  if membership == nil {
    return ErrNotClassTeacher
  }

  return cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    if err := cs.classMemberRepo.FullDeleteByClassIDs(ctx, tx, []uuid.UUID{classID}); err != nil {
      return fmt.Errorf("Failed to delete class memberships: %w", err)
    }
    if err := cs.classRepo.FullDeleteByIDs(ctx, tx, []uuid.UUID{classID}); err != nil {
      return fmt.Errorf("Failed to delete class: %w", err)
    }
    return nil
  })
}

// UpdateClassSettings replaces the class configuration with the given
// desired state in a single transaction. Rows absent from the payload are
// removed, rows without an id are created.
func (cs *classService) UpdateClassSettings(ctx context.Context, userID, classID uuid.UUID, input *ClassSettingsInput) (*ClassDetail, error) {
  classes, err := cs.classRepo.GetByIDs(ctx, nil, []uuid.UUID{classID})
  if err != nil {
    return nil, fmt.Errorf("Failed to load class: %w", err)
  }
  if len(classes) == 0 {
    return nil, ErrClassNotFound
  }
  class := classes[0]

  membership, err := cs.classMemberRepo.GetTeacherMembership(ctx, nil, classID, userID)
  if err != nil {
    return nil, fmt.Errorf("Failed to check class membership: %w", err)
  }
  if membership == nil {
    return nil, ErrNotClassTeacher
  }

  err = cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    class.Name = normalization.CollapseSpaces(input.Name)
    class.AcademicYear = input.AcademicYear
    class.Group = input.Group
    class.Subject = input.Subject
    class.InviteCodeEnabled = input.IsInvitationCodeEnabled
    class.InviteLink = input.InvitationLink
    class.InviteCode = input.InvitationCode
    if err := cs.classRepo.Save(ctx, tx, class); err != nil {
      return fmt.Errorf("Failed to save class: %w", err)
    }

    if err := cs.reconcileCategories(ctx, tx, classID, input.Categories); err != nil {
      return err
    }
    if err := cs.reconcileChallenges(ctx, tx, classID, input.Challenges); err != nil {
      return err
    }
    if err := cs.reconcileItems(ctx, tx, classID, input.Items); err != nil {
      return err
    }
    return nil
  })
  if err != nil {
    return nil, err
  }

  return cs.GetClassDetail(ctx, classID)
}

// UploadChallengeIcon stores a teacher-supplied icon image for one
// challenge through the bucket pipeline and persists the new key and URL.
func (cs *classService) UploadChallengeIcon(ctx context.Context, userID, classID, challengeID uuid.UUID, raw []byte) (*types.Challenge, error) {
  membership, err := cs.classMemberRepo.GetTeacherMembership(ctx, nil, classID, userID)
  if err != nil {
    return nil, fmt.Errorf("Failed to check class membership: %w", err)
  }
  if membership == nil {
    return nil, ErrNotClassTeacher
  }

  challenges, err := cs.challengeRepo.GetByClassID(ctx, nil, classID)
  if err != nil {
    return nil, fmt.Errorf("Failed to load challenges: %w", err)
  }
  var challenge *types.Challenge
  for _, candidate := range challenges {
    if candidate.ID == challengeID {
      challenge = candidate
      break
    }
  }
  if challenge == nil {
    return nil, ErrChallengeNotFound
  }

  if cs.avatarService == nil {
    return nil, ErrIconStorageMissing
  }
  if err := cs.avatarService.UploadChallengeIcon(ctx, challenge, raw); err != nil {
    return nil, fmt.Errorf("Failed to upload challenge icon: %w", err)
  }
  if err := cs.challengeRepo.Save(ctx, nil, challenge); err != nil {
    return nil, fmt.Errorf("Failed to persist challenge icon: %w", err)
  }

  cs.log.Info("Challenge icon updated", "class_id", classID, "challenge_id", challengeID)
  return challenge, nil
}

func (cs *classService) reconcileCategories(ctx context.Context, tx *gorm.DB, classID uuid.UUID, inputs []CategoryInput) error {
  existing, err := cs.categoryRepo.GetTopLevelByClassID(ctx, tx, classID)
  if err != nil {
    return fmt.Errorf("Failed to load categories: %w", err)
  }
  existingByID := make(map[uuid.UUID]*types.Category, len(existing))
  for _, category := range existing {
    existingByID[category.ID] = category
  }

  kept := make(map[uuid.UUID]bool, len(inputs))
  for _, input := range inputs {
    if input.ID != nil {
      if category, ok := existingByID[*input.ID]; ok {
        category.Name = input.Name
        category.Weight = input.Weight
        if err := cs.categoryRepo.Save(ctx, tx, category); err != nil {
          return fmt.Errorf("Failed to save category: %w", err)
        }
        kept[category.ID] = true
        if err := cs.reconcileSubcategories(ctx, tx, classID, category.ID, input.Subcategories); err != nil {
          return err
        }
        continue
      }
    }

    category := &types.Category{
      ClassID: classID,
      Name:    input.Name,
      Weight:  input.Weight,
    }
    created, ccErr := cs.categoryRepo.Create(ctx, tx, []*types.Category{category})
    if ccErr != nil {
      return fmt.Errorf("Failed to create category: %w", ccErr)
    }
    category = created[0]
    kept[category.ID] = true
    if err := cs.reconcileSubcategories(ctx, tx, classID, category.ID, input.Subcategories); err != nil {
      return err
    }
  }

  var toDelete []uuid.UUID
  for _, category := range existing {
    if !kept[category.ID] {
      toDelete = append(toDelete, category.ID)
      children, err := cs.categoryRepo.GetChildren(ctx, tx, category.ID)
      if err != nil {
        return fmt.Errorf("Failed to load subcategories: %w", err)
      }
      for _, child := range children {
        toDelete = append(toDelete, child.ID)
      }
    }
  }
  if len(toDelete) > 0 {
    if err := cs.categoryRepo.FullDeleteByIDs(ctx, tx, toDelete); err != nil {
      return fmt.Errorf("Failed to delete categories: %w", err)
    }
  }
  return nil
}

func (cs *classService) reconcileSubcategories(ctx context.Context, tx *gorm.DB, classID, parentID uuid.UUID, inputs []SubcategoryInput) error {
  existing, err := cs.categoryRepo.GetChildren(ctx, tx, parentID)
  if err != nil {
    return fmt.Errorf("Failed to load subcategories: %w", err)
  }
  existingByID := make(map[uuid.UUID]*types.Category, len(existing))
  for _, child := range existing {
    existingByID[child.ID] = child
  }

  kept := make(map[uuid.UUID]bool, len(inputs))
  for _, input := range inputs {
    if input.ID != nil {
      if child, ok := existingByID[*input.ID]; ok {
        child.Name = input.Name
        child.Weight = input.Weight
        if err := cs.categoryRepo.Save(ctx, tx, child); err != nil {
          return fmt.Errorf("Failed to save subcategory: %w", err)
        }
        kept[child.ID] = true
        continue
      }
    }

    parent := parentID
    child := &types.Category{
      ClassID:  classID,
      ParentID: &parent,
      Name:     input.Name,
      Weight:   input.Weight,
    }
    created, ccErr := cs.categoryRepo.Create(ctx, tx, []*types.Category{child})
    if ccErr != nil {
      return fmt.Errorf("Failed to create subcategory: %w", ccErr)
    }
    kept[created[0].ID] = true
  }

  var toDelete []uuid.UUID
  for _, child := range existing {
    if !kept[child.ID] {
      toDelete = append(toDelete, child.ID)
    }
  }
  if len(toDelete) > 0 {
    if err := cs.categoryRepo.FullDeleteByIDs(ctx, tx, toDelete); err != nil {
      return fmt.Errorf("Failed to delete subcategories: %w", err)
    }
  }
  return nil
}

func (cs *classService) reconcileChallenges(ctx context.Context, tx *gorm.DB, classID uuid.UUID, inputs []ChallengeInput) error {
  existing, err := cs.challengeRepo.GetByClassID(ctx, tx, classID)
  if err != nil {
    return fmt.Errorf("Failed to load challenges: %w", err)
  }
  existingByID := make(map[uuid.UUID]*types.Challenge, len(existing))
  for _, challenge := range existing {
    existingByID[challenge.ID] = challenge
  }

  kept := make(map[uuid.UUID]bool, len(inputs))
  for _, input := range inputs {
    level := input.Level
    if level < 1 {
      level = 1
    }
    if input.ID != nil {
      if challenge, ok := existingByID[*input.ID]; ok {
        challenge.Name = input.Name
        challenge.Description = input.Description
        challenge.IconURL = input.IconPath
        challenge.Level = level
        if err := cs.challengeRepo.Save(ctx, tx, challenge); err != nil {
          return fmt.Errorf("Failed to save challenge: %w", err)
        }
        kept[challenge.ID] = true
        continue
      }
    }

    challenge := &types.Challenge{
      ClassID:     classID,
      Name:        input.Name,
      Description: input.Description,
      IconURL:     input.IconPath,
      Level:       level,
    }
    created, ccErr := cs.challengeRepo.Create(ctx, tx, []*types.Challenge{challenge})
    if ccErr != nil {
      return fmt.Errorf("Failed to create challenge: %w", ccErr)
    }
    kept[created[0].ID] = true
  }

  var toDelete []uuid.UUID
  for _, challenge := range existing {
    if !kept[challenge.ID] {
      toDelete = append(toDelete, challenge.ID)
    }
  }
  if len(toDelete) > 0 {
    if err := cs.challengeRepo.FullDeleteByIDs(ctx, tx, toDelete); err != nil {
      return fmt.Errorf("Failed to delete challenges: %w", err)
    }
  }
  return nil
}

func (cs *classService) reconcileItems(ctx context.Context, tx *gorm.DB, classID uuid.UUID, inputs []ItemInput) error {
  existing, err := cs.itemRepo.GetByClassID(ctx, tx, classID)
  if err != nil {
    return fmt.Errorf("Failed to load items: %w", err)
  }
  existingByID := make(map[uuid.UUID]*types.Item, len(existing))
  for _, item := range existing {
    existingByID[item.ID] = item
  }

  kept := make(map[uuid.UUID]bool, len(inputs))
  for _, input := range inputs {
    if input.ID != nil {
      if item, ok := existingByID[*input.ID]; ok {
        item.Name = input.Name
        item.Description = input.Description
        item.Price = input.Price
        item.ExpirationEnabled = input.ExpirationEnabled
        item.ExpirationTime = input.ExpirationTime
        item.UsesEnabled = input.UsesEnabled
        item.Uses = input.Uses
        item.Icon = input.Icon
        if err := cs.itemRepo.Save(ctx, tx, item); err != nil {
          return fmt.Errorf("Failed to save item: %w", err)
        }
        kept[item.ID] = true
        continue
      }
    }

    item := &types.Item{
      ClassID:           classID,
      Name:              input.Name,
      Description:       input.Description,
      Price:             input.Price,
      ExpirationEnabled: input.ExpirationEnabled,
      ExpirationTime:    input.ExpirationTime,
      UsesEnabled:       input.UsesEnabled,
      Uses:              input.Uses,
      Icon:              input.Icon,
    }
    created, ccErr := cs.itemRepo.Create(ctx, tx, []*types.Item{item})
    if ccErr != nil {
      return fmt.Errorf("Failed to create item: %w", ccErr)
    }
    kept[created[0].ID] = true
  }

  var toDelete []uuid.UUID
  for _, item := range existing {
    if !kept[item.ID] {
      toDelete = append(toDelete, item.ID)
    }
  }
  if len(toDelete) > 0 {
    if err := cs.itemRepo.FullDeleteByIDs(ctx, tx, toDelete); err != nil {
      return fmt.Errorf("Failed to delete items: %w", err)
    }
  }
  return nil
}
