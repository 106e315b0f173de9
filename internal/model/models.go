package model

import (
	"fmt"
	"path/filepath"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Project 项目，文件与比对任务的容器
// (name, 未删除) 唯一，冲突在服务层转换为业务错误
type Project struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"size:255;not null;uniqueIndex:idx_project_name"`
	OwnerID   uint           `json:"owner_id" gorm:"index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"uniqueIndex:idx_project_name"`
}

// ProjectInfo 项目附加信息（来源、部门），与项目一一对应
type ProjectInfo struct {
	ID        uint                        `json:"id" gorm:"primaryKey"`
	ProjectID uint                        `json:"project_id" gorm:"uniqueIndex"`
	Source    int                         `json:"source"` // 0 本地上传, 1 星云系统
	DeptIDs   datatypes.JSONSlice[string] `json:"dept_ids"`
	CreatedAt time.Time                   `json:"created_at"`
}

// File 上传的单个文档
// Source 是配置的文档类型名称（基金合同/招募说明书/托管协议/...）
type File struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	ProjectID      uint      `json:"project_id" gorm:"index;not null"`
	Name           string    `json:"name" gorm:"size:255;not null"`
	Source         string    `json:"file_type" gorm:"size:64;index"`
	PDFParseStatus int       `json:"pdf_parse_status" gorm:"default:1"`
	ObjectKey      string    `json:"-" gorm:"size:500"` // MinIO 中原始文件的对象名
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:FileID"`
}

// PdfinsightPath 解析结果 JSON 的本地路径
func (f *File) PdfinsightPath(dataDir string) string {
	return filepath.Join(dataDir, "pdfinsight", fmt.Sprintf("%d.json", f.ID))
}

// Mold 提取 schema（字段规则由外部预测服务维护，这里只存名称）
type Mold struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"size:128;uniqueIndex;not null"`
}

// Question 一个文件在一个 schema 下的提取单元
// PresetAnswer 为预测服务回写的答案树，核心只读
type Question struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	FileID       uint           `json:"fid" gorm:"index;not null"`
	MoldID       uint           `json:"mold_id" gorm:"index;not null"`
	AIStatus     int            `json:"ai_status" gorm:"default:0"`
	PresetAnswer datatypes.JSON `json:"preset_answer,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`

	Mold *Mold `json:"mold,omitempty" gorm:"foreignKey:MoldID"`
}

// CompareTask 一次比对任务，成员为同一项目下的一组文件
type CompareTask struct {
	ID                uint                      `json:"id" gorm:"primaryKey"`
	ProjectID         uint                      `json:"project_id" gorm:"index;not null;uniqueIndex:idx_task_name"`
	OwnerID           uint                      `json:"owner_id" gorm:"index"`
	Name              string                    `json:"name" gorm:"size:255;not null;uniqueIndex:idx_task_name"`
	FileIDs           datatypes.JSONSlice[uint] `json:"fids"`
	Started           bool                      `json:"started" gorm:"default:false"`
	Status            int                       `json:"status" gorm:"default:0"`
	ConsistencyStatus int                       `json:"consistency_status" gorm:"default:0"`
	ConsistencyAnswer datatypes.JSON            `json:"consistency_answer,omitempty"`
	ChapterStatus     int                       `json:"chapter_status" gorm:"default:0"`
	ChapterAnswer     datatypes.JSON            `json:"chapter_answer,omitempty"`
	CreatedAt         time.Time                 `json:"created_at"`
	UpdatedAt         time.Time                 `json:"updated_at"`
	DeletedAt         gorm.DeletedAt            `json:"-" gorm:"index;uniqueIndex:idx_task_name"`
}

// HasFile 判断文件是否在任务成员集中
func (t *CompareTask) HasFile(fid uint) bool {
	for _, id := range t.FileIDs {
		if id == fid {
			return true
		}
	}
	return false
}

// FileAnswer 单文档一致性比对结果，每个 (task, file) 一行，重比对时覆盖
type FileAnswer struct {
	ID        uint                        `json:"id" gorm:"primaryKey"`
	TaskID    uint                        `json:"task_id" gorm:"uniqueIndex:idx_task_file;not null"`
	FileID    uint                        `json:"fid" gorm:"uniqueIndex:idx_task_file;not null"`
	Status    int                         `json:"status" gorm:"default:0"`
	Schema    datatypes.JSONSlice[string] `json:"schema"`
	Answer    datatypes.JSON              `json:"answer,omitempty"`
	CreatedAt time.Time                   `json:"created_at"`
	UpdatedAt time.Time                   `json:"updated_at"`
}
