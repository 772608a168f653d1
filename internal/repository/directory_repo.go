package repository

import (
	"context"

	"driveschool/internal/domain"

	"gorm.io/gorm"
)

// DirectoryRepository is the read-only view into the entities maintained
// by the plain CRUD screens: students, instructors, vehicles, courses.
type DirectoryRepository struct {
	db *gorm.DB
}

func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

type studentModel struct {
	ID       int64  `gorm:"column:id;primaryKey"`
	FullName string `gorm:"column:full_name"`
	Phone    string `gorm:"column:phone"`
}

func (studentModel) TableName() string { return "students" }

type instructorModel struct {
	ID          int64  `gorm:"column:id;primaryKey"`
	FullName    string `gorm:"column:full_name"`
	LicenseType string `gorm:"column:license_type"`
	IsAvailable bool   `gorm:"column:is_available"`
}

func (instructorModel) TableName() string { return "instructors" }

type vehicleModel struct {
	ID           int64  `gorm:"column:id;primaryKey"`
	Registration string `gorm:"column:registration"`
	Model        string `gorm:"column:model"`
}

func (vehicleModel) TableName() string { return "vehicles" }

type courseModel struct {
	ID    int64   `gorm:"column:id;primaryKey"`
	Name  string  `gorm:"column:name"`
	Price float64 `gorm:"column:price"`
}

func (courseModel) TableName() string { return "courses" }

func (r *DirectoryRepository) StudentExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, &studentModel{}, id)
}

func (r *DirectoryRepository) InstructorByID(ctx context.Context, id int64) (*domain.Instructor, error) {
	var m instructorModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return &domain.Instructor{
		ID:          m.ID,
		FullName:    m.FullName,
		LicenseType: m.LicenseType,
		IsAvailable: m.IsAvailable,
	}, nil
}

func (r *DirectoryRepository) VehicleExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, &vehicleModel{}, id)
}

func (r *DirectoryRepository) CourseExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, &courseModel{}, id)
}

func (r *DirectoryRepository) exists(ctx context.Context, model any, id int64) (bool, error) {
	var cnt int64
	tx := r.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&cnt)
	if tx.Error != nil {
		return false, tx.Error
	}
	return cnt > 0, nil
}
