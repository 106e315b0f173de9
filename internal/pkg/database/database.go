package database

import (
	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/scriber/fundcompare/internal/model"
)

func InitDB(dbType, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch dbType {
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		// 使用 github.com/glebarez/sqlite 驱动
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&model.Project{}, &model.ProjectInfo{}, &model.File{},
		&model.Mold{}, &model.Question{},
	); err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.CompareTask{}, &model.FileAnswer{}); err != nil {
		return nil, err
	}
	return db, nil
}
