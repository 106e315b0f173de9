package answer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Box 答案的一个字符块来源
type Box struct {
	Page int       `json:"page"`
	Box  []float64 `json:"box"` // x0, y0, x1, y2
	Text string    `json:"text"`
}

// Payload 答案的一组文本与来源框
type Payload struct {
	Text  string `json:"text"`
	Boxes []*Box `json:"boxes"`
}

// DiffRecord 一次逐答案比对的结果，随答案一起入库
type DiffRecord struct {
	HTMLDiffContent string `json:"html_diff_content"`
	Equal           bool   `json:"equal"`
}

// Answer 预测服务产出的一个叶子答案
// Key 是路径编码（`["schema名:0","001基金名称:0"]`），Schema 是末段含序号的标签
// Positions/Diffs 由比对流程填充后入库
type Answer struct {
	Key       string        `json:"key"`
	Fid       uint          `json:"fid"`
	Schema    string        `json:"schema"`
	Data      []*Payload    `json:"data"`
	Positions []string      `json:"positions,omitempty"`
	Diffs     []*DiffRecord `json:"diffs,omitempty"`
}

// PathSeg 答案 key 的一段
type PathSeg struct {
	Name  string
	Index int
}

// ParsePath 解析路径编码的 key
func ParsePath(key string) ([]PathSeg, error) {
	var parts []string
	if err := json.Unmarshal([]byte(key), &parts); err != nil {
		return nil, fmt.Errorf("解析答案 key 失败: %w", err)
	}
	segs := make([]PathSeg, 0, len(parts))
	for _, part := range parts {
		i := strings.LastIndex(part, ":")
		if i < 0 {
			return nil, fmt.Errorf("答案 key 段缺少序号: %s", part)
		}
		idx, err := strconv.Atoi(part[i+1:])
		if err != nil {
			return nil, fmt.Errorf("答案 key 段序号非法: %s", part)
		}
		segs = append(segs, PathSeg{Name: part[:i], Index: idx})
	}
	return segs, nil
}

// ConvKey 取末段名称
// `["基金合同V1:0","001基金名称:0"]` -> "001基金名称"
func ConvKey(key string) string {
	segs, err := ParsePath(key)
	if err != nil || len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1].Name
}

var pSerial = regexp.MustCompile(`\d+`)

// GetSerial 标签中的数字序号，无序号返回 0
func GetSerial(label string) int {
	if m := pSerial.FindString(label); m != "" {
		n, _ := strconv.Atoi(m)
		return n
	}
	return 0
}

var pLeadingSerial = regexp.MustCompile(`^\d+`)

// StripSerial 去掉标签的数字前缀
// "001基金名称" -> "基金名称"
func StripSerial(label string) string {
	return pLeadingSerial.ReplaceAllString(label, "")
}

// Node 一个文件在一个 schema 下的全部叶子答案
type Node struct {
	Name  string // schema 名称
	Items []*Answer
}

type rawAnswer struct {
	Items []*Answer `json:"items"`
}

// ParseNode 解析预测服务回写的答案树
// 返回 nil 表示尚无预测结果
func ParseNode(raw []byte, fid uint, moldName string) (*Node, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var ra rawAnswer
	if err := json.Unmarshal(raw, &ra); err != nil {
		return nil, fmt.Errorf("解析答案树失败: %w", err)
	}
	node := &Node{Name: moldName}
	for _, item := range ra.Items {
		item.Fid = fid
		if item.Schema == "" {
			item.Schema = ConvKey(item.Key)
		}
		node.Items = append(node.Items, item)
	}
	return node, nil
}
