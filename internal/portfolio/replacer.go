package portfolio

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"openpersona/internal/database"
)

// The replace functions below implement wholesale collection replacement:
// delete everything the user owns, then insert the new list in array order
// with position = index. They have no transaction boundary of their own and
// must run inside the orchestrator's transaction. An empty or nil list is a
// valid "clear the collection" request.

func jsonArray(values []string) datatypes.JSON {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(data)
}

func clearCollection(tx *gorm.DB, model any, userID uint) error {
	// Hard delete: replaced rows are gone for good, soft-deleted leftovers
	// would collide with position reuse and bloat every fetch.
	if err := tx.Unscoped().Where("user_id = ?", userID).Delete(model).Error; err != nil {
		return fmt.Errorf("clear collection: %w", err)
	}
	return nil
}

func replaceExperiences(tx *gorm.DB, userID uint, items []ExperienceItem) error {
	if err := clearCollection(tx, &database.Experience{}, userID); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	rows := make([]database.Experience, 0, len(items))
	for i, item := range items {
		rows = append(rows, database.Experience{
			UserID:    userID,
			Company:   item.Company,
			Role:      item.Role,
			Summary:   item.Summary,
			StartDate: normalizeDate(item.StartDate),
			EndDate:   normalizeDate(item.EndDate),
			Position:  i,
		})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("insert experiences: %w", err)
	}
	return nil
}

func replaceEducation(tx *gorm.DB, userID uint, items []EducationItem) error {
	if err := clearCollection(tx, &database.Education{}, userID); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	rows := make([]database.Education, 0, len(items))
	for i, item := range items {
		rows = append(rows, database.Education{
			UserID:      userID,
			Institution: item.Institution,
			Degree:      item.Degree,
			Summary:     item.Summary,
			StartDate:   normalizeDate(item.StartDate),
			EndDate:     normalizeDate(item.EndDate),
			Position:    i,
		})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("insert education: %w", err)
	}
	return nil
}

func replaceProjects(tx *gorm.DB, userID uint, items []ProjectItem) error {
	if err := clearCollection(tx, &database.Project{}, userID); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	rows := make([]database.Project, 0, len(items))
	for i, item := range items {
		rows = append(rows, database.Project{
			UserID:        userID,
			Title:         item.Title,
			Description:   item.Description,
			Tags:          jsonArray(item.Tags),
			Links:         jsonArray(item.Links),
			DashboardSlug: item.DashboardSlug,
			Position:      i,
		})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("insert projects: %w", err)
	}
	return nil
}

func replaceAchievements(tx *gorm.DB, userID uint, items []AchievementItem) error {
	if err := clearCollection(tx, &database.Achievement{}, userID); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	rows := make([]database.Achievement, 0, len(items))
	for i, item := range items {
		rows = append(rows, database.Achievement{
			UserID:      userID,
			Title:       item.Title,
			Description: item.Description,
			Position:    i,
		})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("insert achievements: %w", err)
	}
	return nil
}

func replaceSkills(tx *gorm.DB, userID uint, items []SkillItem) error {
	if err := clearCollection(tx, &database.Skill{}, userID); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	rows := make([]database.Skill, 0, len(items))
	for i, item := range items {
		rows = append(rows, database.Skill{
			UserID:   userID,
			Name:     item.Name,
			Level:    item.Level,
			Position: i,
		})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("insert skills: %w", err)
	}
	return nil
}

func replaceCertifications(tx *gorm.DB, userID uint, items []CertificationItem) error {
	if err := clearCollection(tx, &database.Certification{}, userID); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	rows := make([]database.Certification, 0, len(items))
	for i, item := range items {
		rows = append(rows, database.Certification{
			UserID:       userID,
			Name:         item.Name,
			Issuer:       item.Issuer,
			Summary:      item.Summary,
			CredentialID: item.CredentialID,
			IssuedAt:     normalizeDate(item.IssuedAt),
			ExpiresAt:    normalizeDate(item.ExpiresAt),
			Position:     i,
		})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("insert certifications: %w", err)
	}
	return nil
}
