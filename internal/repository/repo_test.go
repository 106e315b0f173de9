package repository

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/scriber/fundcompare/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db error: %v", err)
	}
	if err := db.AutoMigrate(
		&model.Project{}, &model.ProjectInfo{}, &model.File{}, &model.Mold{},
		&model.Question{}, &model.CompareTask{}, &model.FileAnswer{},
	); err != nil {
		t.Fatalf("migrate error: %v", err)
	}
	return db
}

func TestProjectRepositoryNameUnique(t *testing.T) {
	db := newTestDB(t)
	repo := NewProjectRepository(db)

	if err := repo.Create(&model.Project{Name: "华夏成长", OwnerID: 1}); err != nil {
		t.Fatalf("create error: %v", err)
	}
	if err := repo.Create(&model.Project{Name: "华夏成长", OwnerID: 2}); err == nil {
		t.Fatal("expected unique violation, got nil")
	}

	// 软删除后同名可重建
	p, err := repo.GetByName("华夏成长")
	if err != nil {
		t.Fatalf("get by name error: %v", err)
	}
	if err := repo.Delete(p.ID); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	if err := repo.Create(&model.Project{Name: "华夏成长", OwnerID: 2}); err != nil {
		t.Fatalf("recreate after delete error: %v", err)
	}
}

func TestProjectRepositorySaveInfoUpsert(t *testing.T) {
	db := newTestDB(t)
	repo := NewProjectRepository(db)

	if err := repo.SaveInfo(&model.ProjectInfo{ProjectID: 7, Source: 1, DeptIDs: datatypes.NewJSONSlice([]string{"d1"})}); err != nil {
		t.Fatalf("save info error: %v", err)
	}
	if err := repo.SaveInfo(&model.ProjectInfo{ProjectID: 7, Source: 1, DeptIDs: datatypes.NewJSONSlice([]string{"d1", "d2"})}); err != nil {
		t.Fatalf("second save info error: %v", err)
	}
	info, err := repo.GetInfo(7)
	if err != nil {
		t.Fatalf("get info error: %v", err)
	}
	if len(info.DeptIDs) != 2 {
		t.Fatalf("unexpected dept ids: %v", info.DeptIDs)
	}
}

func TestQuestionRepositoryUnfinishedExists(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuestionRepository(db)

	q1 := &model.Question{FileID: 1, MoldID: 1, AIStatus: int(model.AIDoing)}
	q2 := &model.Question{FileID: 1, MoldID: 2, AIStatus: int(model.AIFinish)}
	for _, q := range []*model.Question{q1, q2} {
		if err := repo.Create(q); err != nil {
			t.Fatalf("create error: %v", err)
		}
	}

	exists, err := repo.UnfinishedExists([]uint{1})
	if err != nil {
		t.Fatalf("unfinished exists error: %v", err)
	}
	if !exists {
		t.Fatal("expected unfinished question")
	}

	if err := repo.UpdateAIStatus(q1.ID, model.AIFailed); err != nil {
		t.Fatalf("update status error: %v", err)
	}
	exists, err = repo.UnfinishedExists([]uint{1})
	if err != nil {
		t.Fatalf("unfinished exists error: %v", err)
	}
	if exists {
		t.Fatal("expected all questions finished")
	}
}

func TestQuestionRepositoryGetByFileAndMolds(t *testing.T) {
	db := newTestDB(t)
	molds := NewMoldRepository(db)
	repo := NewQuestionRepository(db)

	m1, err := molds.GetOrCreate("华夏营销部-基金合同V1")
	if err != nil {
		t.Fatalf("get or create mold error: %v", err)
	}
	m2, err := molds.GetOrCreate("标注章节对比 基金合同V1")
	if err != nil {
		t.Fatalf("get or create mold error: %v", err)
	}
	if err := repo.Create(&model.Question{FileID: 3, MoldID: m1.ID}); err != nil {
		t.Fatalf("create error: %v", err)
	}
	if err := repo.Create(&model.Question{FileID: 3, MoldID: m2.ID}); err != nil {
		t.Fatalf("create error: %v", err)
	}

	questions, err := repo.GetByFileAndMolds(3, []string{"标注章节对比 基金合同V1"})
	if err != nil {
		t.Fatalf("get by molds error: %v", err)
	}
	if len(questions) != 1 || questions[0].Mold == nil || questions[0].Mold.Name != "标注章节对比 基金合同V1" {
		t.Fatalf("unexpected questions: %+v", questions)
	}
}

func TestCompareTaskRepositoryStartedByFile(t *testing.T) {
	db := newTestDB(t)
	repo := NewCompareTaskRepository(db)

	started := &model.CompareTask{ProjectID: 1, Name: "任务A", FileIDs: datatypes.NewJSONSlice([]uint{1, 2}), Started: true}
	idle := &model.CompareTask{ProjectID: 1, Name: "任务B", FileIDs: datatypes.NewJSONSlice([]uint{2, 3})}
	other := &model.CompareTask{ProjectID: 1, Name: "任务C", FileIDs: datatypes.NewJSONSlice([]uint{4}), Started: true}
	for _, task := range []*model.CompareTask{started, idle, other} {
		if err := repo.Create(task); err != nil {
			t.Fatalf("create error: %v", err)
		}
	}

	tasks, err := repo.GetStartedByFile(2)
	if err != nil {
		t.Fatalf("get started error: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != started.ID {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
}

func TestCompareTaskRepositoryResetStuckTasks(t *testing.T) {
	db := newTestDB(t)
	repo := NewCompareTaskRepository(db)

	stuck := &model.CompareTask{ProjectID: 1, Name: "卡住的任务", Started: true, Status: int(model.TaskDiffDoing), ConsistencyStatus: int(model.CompareDoing), ChapterStatus: int(model.CompareDone)}
	done := &model.CompareTask{ProjectID: 1, Name: "完成的任务", Status: int(model.TaskDiffDone), ConsistencyStatus: int(model.CompareDone), ChapterStatus: int(model.CompareDone)}
	for _, task := range []*model.CompareTask{stuck, done} {
		if err := repo.Create(task); err != nil {
			t.Fatalf("create error: %v", err)
		}
	}

	affected, err := repo.ResetStuckTasks()
	if err != nil {
		t.Fatalf("reset error: %v", err)
	}
	if affected != 1 {
		t.Fatalf("unexpected affected rows: %d", affected)
	}

	got, err := repo.Get(stuck.ID)
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	// 主状态回落到比对失败，用户才能通过重比对恢复
	if got.Status != int(model.TaskDiffFailed) {
		t.Fatalf("unexpected task status: %d", got.Status)
	}
	if got.Started {
		t.Fatal("started should be cleared")
	}
	if got.ConsistencyStatus != int(model.CompareFailed) {
		t.Fatalf("unexpected consistency status: %d", got.ConsistencyStatus)
	}
	if got.ChapterStatus != int(model.CompareDone) {
		t.Fatalf("chapter status should stay done, got %d", got.ChapterStatus)
	}

	untouched, err := repo.Get(done.ID)
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if untouched.Status != int(model.TaskDiffDone) {
		t.Fatalf("done task should stay done, got %d", untouched.Status)
	}
}

func TestFileAnswerRepositoryUpsert(t *testing.T) {
	db := newTestDB(t)
	repo := NewFileAnswerRepository(db)

	if err := repo.Upsert(&model.FileAnswer{TaskID: 1, FileID: 2, Status: int(model.CompareDoing)}); err != nil {
		t.Fatalf("upsert error: %v", err)
	}
	if err := repo.Upsert(&model.FileAnswer{TaskID: 1, FileID: 2, Status: int(model.CompareDone), Answer: datatypes.JSON(`[]`)}); err != nil {
		t.Fatalf("second upsert error: %v", err)
	}

	answers, err := repo.GetByTask(1)
	if err != nil {
		t.Fatalf("get by task error: %v", err)
	}
	if len(answers) != 1 {
		t.Fatalf("expected single row, got %d", len(answers))
	}
	if answers[0].Status != int(model.CompareDone) {
		t.Fatalf("unexpected status: %d", answers[0].Status)
	}
}
