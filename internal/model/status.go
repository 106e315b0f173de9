package model

// PDFParseStatus 文档解析状态（外部解析服务回写）
type PDFParseStatus int

const (
	PDFParsePending  PDFParseStatus = 1 // 排队中
	PDFParseParsing  PDFParseStatus = 2 // 解析中
	PDFParseComplete PDFParseStatus = 4 // 解析完成
	PDFParseFailed   PDFParseStatus = 5 // 解析失败
)

// AIStatus 单个 question 的预测状态（外部预测服务回写）
type AIStatus int

const (
	AITodo    AIStatus = 0 // 待预测
	AIDoing   AIStatus = 1 // 预测中
	AIFailed  AIStatus = 2 // 预测失败
	AIFinish  AIStatus = 3 // 预测完成
	AIDisable AIStatus = 4 // 模型未启用
)

// TaskStatus 比对任务状态
// 0 表示未写入，由状态计算器按文件状态级联推导
type TaskStatus int

const (
	TaskStatusUnset  TaskStatus = 0
	TaskToBeUploaded TaskStatus = 1000 // 文档待上传
	TaskParsing      TaskStatus = 1100 // 文档解析中
	TaskParsed       TaskStatus = 1110 // 文档解析完成
	TaskAIFailed     TaskStatus = 1111 // 文档预测失败
	TaskAIDisable    TaskStatus = 1112 // 模型未启用
	TaskAIDoing      TaskStatus = 1113 // 文档预测中
	TaskDiffFailed   TaskStatus = 1114 // 文档比对失败
	TaskDiffDone     TaskStatus = 1115 // 文档比对成功
	TaskDiffDoing    TaskStatus = 1116 // 文档比对中
	TaskParseFailed  TaskStatus = 1117 // 文档解析失败
)

// FileStatus 文件级状态，由解析/预测/比对状态归并而来
type FileStatus int

const (
	FilePDFParsing FileStatus = 0 // 解析中
	FilePDFFailed  FileStatus = 1 // 解析失败
	FileAIDisable  FileStatus = 2 // 模型未启用
	FileAIFailed   FileStatus = 3 // 预测失败
	FileAITodo     FileStatus = 4 // 待预测
	FileAIDoing    FileStatus = 5 // 预测中
	FileAIFinish   FileStatus = 6 // 预测成功
	FileCmpFailed  FileStatus = 7 // 文档内比对失败
	FileCmpDoing   FileStatus = 8 // 文档内比对进行中
	FileCmpFinish  FileStatus = 9 // 文档内比对成功
)

// CompareStatus 单文档/跨文档一致性比对子状态
type CompareStatus int

const (
	CompareDefault CompareStatus = 0  // 比对未开始
	CompareFailed  CompareStatus = -2 // 比对失败
	CompareDoing   CompareStatus = 1  // 比对中
	CompareDone    CompareStatus = 2  // 比对成功
)

// ChapterDiffStatus 章节比对子状态，与 CompareStatus 取值一致
type ChapterDiffStatus = CompareStatus
