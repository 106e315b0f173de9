package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/scriber/fundcompare/internal/model"
)

type moldRepository struct {
	db *gorm.DB
}

func NewMoldRepository(db *gorm.DB) MoldRepository {
	return &moldRepository{db: db}
}

func (r *moldRepository) GetOrCreate(name string) (*model.Mold, error) {
	var mold model.Mold
	err := r.db.Where("name = ?", name).First(&mold).Error
	if err == nil {
		return &mold, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	mold = model.Mold{Name: name}
	if err := r.db.Create(&mold).Error; err != nil {
		return nil, err
	}
	return &mold, nil
}

func (r *moldRepository) GetByNames(names []string) ([]model.Mold, error) {
	var molds []model.Mold
	if len(names) == 0 {
		return molds, nil
	}
	err := r.db.Where("name IN ?", names).Find(&molds).Error
	return molds, err
}
