package repository

import (
	"errors"
	"time"

	"github.com/scriber/fundcompare/internal/model"
)

// ErrNotFound 记录不存在错误
var ErrNotFound = errors.New("record not found")

type ProjectRepository interface {
	Create(project *model.Project) error
	GetByName(name string) (*model.Project, error)
	Get(id uint) (*model.Project, error)
	List(ownerID uint) ([]model.Project, error)
	Save(project *model.Project) error
	Delete(id uint) error

	SaveInfo(info *model.ProjectInfo) error
	GetInfo(projectID uint) (*model.ProjectInfo, error)
}

type FileRepository interface {
	Create(file *model.File) error
	Get(id uint) (*model.File, error)
	GetWithQuestions(id uint) (*model.File, error)
	GetByIDs(ids []uint) ([]model.File, error)
	GetByProject(projectID uint) ([]model.File, error)
	CountByType(projectID uint, source string) (int64, error)
	Save(file *model.File) error
	UpdateParseStatus(id uint, status model.PDFParseStatus) error
	Delete(id uint) error
}

type QuestionRepository interface {
	Create(question *model.Question) error
	Get(id uint) (*model.Question, error)
	GetByFile(fid uint) ([]model.Question, error)
	GetByFileAndMolds(fid uint, moldNames []string) ([]model.Question, error)
	UnfinishedExists(fids []uint) (bool, error)
	UpdateAIStatus(id uint, status model.AIStatus) error
	SaveAnswer(id uint, status model.AIStatus, answer []byte) error
	DeleteByFile(fid uint) error
}

type MoldRepository interface {
	GetOrCreate(name string) (*model.Mold, error)
	GetByNames(names []string) ([]model.Mold, error)
}

type CompareTaskRepository interface {
	Create(task *model.CompareTask) error
	Get(id uint) (*model.CompareTask, error)
	// Transaction 在事务内执行 fn，fn 收到的仓库绑定事务连接
	Transaction(fn func(txRepo CompareTaskRepository) error) error
	// GetForUpdate 行锁读取，只应在 Transaction 内使用
	GetForUpdate(id uint) (*model.CompareTask, error)
	GetByProject(projectID uint) ([]model.CompareTask, error)
	GetByName(projectID uint, name string) (*model.CompareTask, error)
	CountNamePrefix(projectID uint, prefix string) (int64, error)
	GetStartedByFile(fid uint) ([]model.CompareTask, error)
	Save(task *model.CompareTask) error
	UpdateFields(id uint, fields map[string]interface{}) error
	ResetStuckTasks() (int64, error)
	CleanupStuckTasks(timeout time.Duration) (int64, error)
	Delete(id uint) error
}

type FileAnswerRepository interface {
	Upsert(fa *model.FileAnswer) error
	GetByTask(taskID uint) ([]model.FileAnswer, error)
	GetByTaskAndFile(taskID, fid uint) (*model.FileAnswer, error)
	DeleteByTaskAndFile(taskID, fid uint) error
	DeleteByTask(taskID uint) error
}
