package eventbus

// FileEventType 文件级事件类型
type FileEventType string

const (
	// FileEventParseFinished 外部解析服务回调：解析成功
	FileEventParseFinished FileEventType = "ParseFinished"
	// FileEventParseFailed 外部解析服务回调：解析失败
	FileEventParseFailed FileEventType = "ParseFailed"
	// FileEventExtracted 某文件的一个提取单元到达终态
	FileEventExtracted FileEventType = "Extracted"
	// FileEventDeleted 文件被删除
	FileEventDeleted FileEventType = "Deleted"
)

type FileEvent struct {
	Type       FileEventType
	ProjectID  uint
	FileID     uint
	QuestionID uint
}

type FileEventHandler = Handler[FileEvent]
type FileEventBus = Bus[FileEventType, FileEvent]

func NewFileEventBus() *FileEventBus {
	return NewBus[FileEventType, FileEvent]()
}
