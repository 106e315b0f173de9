package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/scriber/fundcompare/internal/model"
)

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(project *model.Project) error {
	return r.db.Create(project).Error
}

func (r *projectRepository) GetByName(name string) (*model.Project, error) {
	var project model.Project
	err := r.db.Where("name = ?", name).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) Get(id uint) (*model.Project, error) {
	var project model.Project
	err := r.db.First(&project, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) List(ownerID uint) ([]model.Project, error) {
	var projects []model.Project
	query := r.db.Order("created_at DESC")
	if ownerID > 0 {
		query = query.Where("owner_id = ?", ownerID)
	}
	err := query.Find(&projects).Error
	return projects, err
}

func (r *projectRepository) Save(project *model.Project) error {
	return r.db.Save(project).Error
}

func (r *projectRepository) Delete(id uint) error {
	return r.db.Delete(&model.Project{}, id).Error
}

// SaveInfo 以 project_id 为冲突键覆盖写入附加信息
func (r *projectRepository) SaveInfo(info *model.ProjectInfo) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"source", "dept_ids"}),
	}).Create(info).Error
}

func (r *projectRepository) GetInfo(projectID uint) (*model.ProjectInfo, error) {
	var info model.ProjectInfo
	err := r.db.Where("project_id = ?", projectID).First(&info).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}
