package service

import (
	"context"
	"errors"

	"gorm.io/datatypes"
	"k8s.io/klog/v2"

	"github.com/scriber/fundcompare/config"
	"github.com/scriber/fundcompare/internal/model"
	"github.com/scriber/fundcompare/internal/repository"
)

var ErrProjectExists = errors.New("project name already exists")

// 项目来源
const (
	ProjectSourceLocal   = 0 // 本地创建
	ProjectSourceXingyun = 1 // 星云系统带单据跳转
)

// ProjectService 项目管理
type ProjectService struct {
	projects    repository.ProjectRepository
	tasks       repository.CompareTaskRepository
	fileAnswers repository.FileAnswerRepository
	fileService *FileService
}

func NewProjectService(
	projects repository.ProjectRepository,
	tasks repository.CompareTaskRepository,
	fileAnswers repository.FileAnswerRepository,
	fileService *FileService,
) *ProjectService {
	return &ProjectService{
		projects:    projects,
		tasks:       tasks,
		fileAnswers: fileAnswers,
		fileService: fileService,
	}
}

// Create 创建项目，名称在未删除项目中唯一
func (s *ProjectService) Create(name string, ownerID uint) (*model.Project, error) {
	if _, err := s.projects.GetByName(name); err == nil {
		return nil, ErrProjectExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	project := &model.Project{Name: name, OwnerID: ownerID}
	if err := s.projects.Create(project); err != nil {
		return nil, err
	}
	return project, nil
}

// CreateOrGetXingyun 星云单据跳转入口：同名项目存在则直接复用
// 每次进入都覆盖写入来源与部门信息
func (s *ProjectService) CreateOrGetXingyun(name string, ownerID uint, deptIDs []string) (*model.Project, error) {
	project, err := s.projects.GetByName(name)
	if errors.Is(err, repository.ErrNotFound) {
		project = &model.Project{Name: name, OwnerID: ownerID}
		if err := s.projects.Create(project); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if err := s.projects.SaveInfo(&model.ProjectInfo{
		ProjectID: project.ID,
		Source:    ProjectSourceXingyun,
		DeptIDs:   datatypes.NewJSONSlice(deptIDs),
	}); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) Get(id uint) (*model.Project, error) {
	return s.projects.Get(id)
}

func (s *ProjectService) GetInfo(id uint) (*model.ProjectInfo, error) {
	info, err := s.projects.GetInfo(id)
	if errors.Is(err, repository.ErrNotFound) {
		return &model.ProjectInfo{ProjectID: id, Source: ProjectSourceLocal}, nil
	}
	return info, err
}

func (s *ProjectService) List(ownerID uint) ([]model.Project, error) {
	return s.projects.List(ownerID)
}

func (s *ProjectService) Rename(id uint, name string) (*model.Project, error) {
	project, err := s.projects.Get(id)
	if err != nil {
		return nil, err
	}
	if name == project.Name {
		return project, nil
	}
	if _, err := s.projects.GetByName(name); err == nil {
		return nil, ErrProjectExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	project.Name = name
	if err := s.projects.Save(project); err != nil {
		return nil, err
	}
	return project, nil
}

// Delete 删除项目及其文件与比对任务
func (s *ProjectService) Delete(ctx context.Context, id uint) error {
	files, err := s.fileService.ListByProject(id)
	if err != nil {
		return err
	}
	for i := range files {
		if err := s.fileService.Delete(ctx, files[i].ID); err != nil {
			klog.Errorf("delete file %d error: %v", files[i].ID, err)
		}
	}
	tasks, err := s.tasks.GetByProject(id)
	if err != nil {
		return err
	}
	for i := range tasks {
		if err := s.fileAnswers.DeleteByTask(tasks[i].ID); err != nil {
			return err
		}
		if err := s.tasks.Delete(tasks[i].ID); err != nil {
			return err
		}
	}
	return s.projects.Delete(id)
}

// Sample 范文条目：schema 对应的范文文件与提取单元
type Sample struct {
	Fid uint `json:"fid"`
	Qid uint `json:"qid"`
}

// Samples 范文：配置指定项目下 schema 名 -> 范文条目
func (s *ProjectService) Samples() (map[string]Sample, error) {
	name := config.GetConfig().Data.SampleProject
	if name == "" {
		return map[string]Sample{}, nil
	}
	project, err := s.projects.GetByName(name)
	if errors.Is(err, repository.ErrNotFound) {
		return map[string]Sample{}, nil
	}
	if err != nil {
		return nil, err
	}
	files, err := s.fileService.ListByProject(project.ID)
	if err != nil {
		return nil, err
	}
	samples := make(map[string]Sample)
	for i := range files {
		for _, question := range files[i].Questions {
			if question.Mold == nil {
				continue
			}
			if _, ok := samples[question.Mold.Name]; ok {
				continue
			}
			samples[question.Mold.Name] = Sample{Fid: files[i].ID, Qid: question.ID}
		}
	}
	return samples, nil
}
