package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/scriber/fundcompare/internal/model"
)

type compareTaskRepository struct {
	db *gorm.DB
}

func NewCompareTaskRepository(db *gorm.DB) CompareTaskRepository {
	return &compareTaskRepository{db: db}
}

func (r *compareTaskRepository) Create(task *model.CompareTask) error {
	return r.db.Create(task).Error
}

func (r *compareTaskRepository) Get(id uint) (*model.CompareTask, error) {
	var task model.CompareTask
	err := r.db.First(&task, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *compareTaskRepository) Transaction(fn func(txRepo CompareTaskRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&compareTaskRepository{db: tx})
	})
}

func (r *compareTaskRepository) GetForUpdate(id uint) (*model.CompareTask, error) {
	var task model.CompareTask
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&task, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *compareTaskRepository) GetByProject(projectID uint) ([]model.CompareTask, error) {
	var tasks []model.CompareTask
	err := r.db.Where("project_id = ?", projectID).Order("created_at DESC").Find(&tasks).Error
	return tasks, err
}

func (r *compareTaskRepository) GetByName(projectID uint, name string) (*model.CompareTask, error) {
	var task model.CompareTask
	err := r.db.Where("project_id = ? AND name = ?", projectID, name).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// CountNamePrefix 自动命名用：同项目下同日前缀的任务数（含已删除，避免重名）
func (r *compareTaskRepository) CountNamePrefix(projectID uint, prefix string) (int64, error) {
	var count int64
	err := r.db.Unscoped().Model(&model.CompareTask{}).
		Where("project_id = ? AND name LIKE ?", projectID, prefix+"%").
		Count(&count).Error
	return count, err
}

// GetStartedByFile 已启动且成员包含该文件的任务
// 成员集以 JSON 存储，先按项目外筛再在内存判含
func (r *compareTaskRepository) GetStartedByFile(fid uint) ([]model.CompareTask, error) {
	var tasks []model.CompareTask
	if err := r.db.Where("started = ?", true).Find(&tasks).Error; err != nil {
		return nil, err
	}
	matched := tasks[:0]
	for _, task := range tasks {
		if task.HasFile(fid) {
			matched = append(matched, task)
		}
	}
	return matched, nil
}

func (r *compareTaskRepository) Save(task *model.CompareTask) error {
	return r.db.Save(task).Error
}

func (r *compareTaskRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	return r.db.Model(&model.CompareTask{}).Where("id = ?", id).Updates(fields).Error
}

// ResetStuckTasks 启动时把进行中的比对重置为失败（进程重启后队列内容已丢失）
// 任务主状态一并置为比对失败，用户可通过重比对恢复
func (r *compareTaskRepository) ResetStuckTasks() (int64, error) {
	result := r.db.Model(&model.CompareTask{}).
		Where("status = ? OR consistency_status = ? OR chapter_status = ?",
			int(model.TaskDiffDoing), int(model.CompareDoing), int(model.CompareDoing)).
		Updates(stuckTaskUpdates())
	return result.RowsAffected, result.Error
}

// CleanupStuckTasks 定时清理：比对中超过超时时间的任务标记为失败
func (r *compareTaskRepository) CleanupStuckTasks(timeout time.Duration) (int64, error) {
	cutoff := time.Now().Add(-timeout)
	result := r.db.Model(&model.CompareTask{}).
		Where("(status = ? OR consistency_status = ? OR chapter_status = ?) AND updated_at < ?",
			int(model.TaskDiffDoing), int(model.CompareDoing), int(model.CompareDoing), cutoff).
		Updates(stuckTaskUpdates())
	return result.RowsAffected, result.Error
}

// CASE 表达式引用的都是更新前的行值，字段间互不影响
func stuckTaskUpdates() map[string]interface{} {
	return map[string]interface{}{
		"status":             gorm.Expr("CASE WHEN status = ? THEN ? ELSE status END", int(model.TaskDiffDoing), int(model.TaskDiffFailed)),
		"started":            gorm.Expr("CASE WHEN status = ? THEN ? ELSE started END", int(model.TaskDiffDoing), false),
		"consistency_status": gorm.Expr("CASE WHEN consistency_status = ? THEN ? ELSE consistency_status END", int(model.CompareDoing), int(model.CompareFailed)),
		"chapter_status":     gorm.Expr("CASE WHEN chapter_status = ? THEN ? ELSE chapter_status END", int(model.CompareDoing), int(model.CompareFailed)),
	}
}

func (r *compareTaskRepository) Delete(id uint) error {
	return r.db.Delete(&model.CompareTask{}, id).Error
}
