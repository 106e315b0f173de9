package pdfreader

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/scriber/fundcompare/internal/answer"
)

// 元素类型，与解析服务回写的 JSON 对齐
const (
	ClassParagraph  = "PARAGRAPH"
	ClassTable      = "TABLE"
	ClassPageHeader = "PAGE_HEADER"
	ClassImage      = "IMAGE"
)

// Cell 表格单元格
type Cell struct {
	Text    string    `json:"text"`
	Page    int       `json:"page"`
	Outline []float64 `json:"outline"`
}

// Element 解析出的一个文档元素
type Element struct {
	Index   int       `json:"index"`
	Page    int       `json:"page"`
	Class   string    `json:"class"`
	Text    string    `json:"text"`
	Outline []float64 `json:"outline"` // x0, y0, x1, y1
	Cells   []*Cell   `json:"cells,omitempty"`
}

// Syllabus 章节条目，Index..EndIndex 为该章节覆盖的元素区间
type Syllabus struct {
	Title    string `json:"title"`
	Level    int    `json:"level"`
	Index    int    `json:"index"`
	EndIndex int    `json:"end_index"`
}

// Document 解析服务产出的整篇文档
type Document struct {
	Pages      int         `json:"pages"`
	Elements   []*Element  `json:"elements"`
	Syllabuses []*Syllabus `json:"syllabuses"`
}

// Reader 只读访问一篇已解析文档
type Reader struct {
	doc     *Document
	byIndex map[int]*Element
}

// NewReader 从解析结果 JSON 文件构建 Reader
func NewReader(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取解析结果失败: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("解析结果格式非法: %w", err)
	}
	return NewReaderFromDocument(&doc), nil
}

// NewReaderFromDocument 直接从内存文档构建（测试用）
func NewReaderFromDocument(doc *Document) *Reader {
	r := &Reader{doc: doc, byIndex: make(map[int]*Element, len(doc.Elements))}
	for _, elt := range doc.Elements {
		r.byIndex[elt.Index] = elt
	}
	return r
}

// Pages 总页数
func (r *Reader) Pages() int {
	return r.doc.Pages
}

// LastPage 末页页码（0 起）
func (r *Reader) LastPage() int {
	return r.doc.Pages - 1
}

// Paragraphs 全部段落元素，按元素顺序
func (r *Reader) Paragraphs() []*Element {
	var paras []*Element
	for _, elt := range r.doc.Elements {
		if elt.Class == ClassParagraph {
			paras = append(paras, elt)
		}
	}
	return paras
}

// PageHeaders 全部页眉元素
func (r *Reader) PageHeaders() []*Element {
	var headers []*Element
	for _, elt := range r.doc.Elements {
		if elt.Class == ClassPageHeader {
			headers = append(headers, elt)
		}
	}
	return headers
}

// FindElementByIndex 按元素序号取元素
func (r *Reader) FindElementByIndex(index int) *Element {
	return r.byIndex[index]
}

// FindElementsByBox 找出与给定页上外框重叠的元素
func (r *Reader) FindElementsByBox(page int, box []float64) []*Element {
	var found []*Element
	for _, elt := range r.doc.Elements {
		if elt.Page != page {
			continue
		}
		if overlapPercent(elt.Outline, box) >= 0.5 {
			found = append(found, elt)
		}
	}
	return found
}

// FindSyllabusesByIndex 元素所属的章节链，由外层到内层
func (r *Reader) FindSyllabusesByIndex(index int) []*Syllabus {
	var chain []*Syllabus
	for _, syl := range r.doc.Syllabuses {
		if syl.Index <= index && index <= syl.EndIndex {
			chain = append(chain, syl)
		}
	}
	sort.SliceStable(chain, func(i, j int) bool { return chain[i].Level < chain[j].Level })
	return chain
}

// overlapPercent 交叠面积占 box 面积的比例
func overlapPercent(outline, box []float64) float64 {
	if len(outline) < 4 || len(box) < 4 {
		return 0
	}
	w := min(outline[2], box[2]) - max(outline[0], box[0])
	h := min(outline[3], box[3]) - max(outline[1], box[1])
	if w <= 0 || h <= 0 {
		return 0
	}
	area := (box[2] - box[0]) * (box[3] - box[1])
	if area <= 0 {
		return 0
	}
	return w * h / area
}

// Interdoc 从若干答案 payload 合成的文档视图，供结构化比对使用
type Interdoc struct {
	Paragraphs   []*Element // 比对用段落流（表格按单元格展开）
	OrigElements []*Element // 定位到的原始元素
}

// Text 段落流拼接文本
func (d *Interdoc) Text() string {
	var out []byte
	for _, para := range d.Paragraphs {
		out = append(out, para.Text...)
	}
	return string(out)
}

// InterdocFromPayloads 由答案 payload 的来源框定位元素并合成 Interdoc
func (r *Reader) InterdocFromPayloads(items []*answer.Payload) *Interdoc {
	doc := &Interdoc{}
	seen := make(map[int]struct{})
	for _, item := range items {
		for _, box := range item.Boxes {
			for _, elt := range r.FindElementsByBox(box.Page, box.Box) {
				if _, ok := seen[elt.Index]; ok {
					continue
				}
				seen[elt.Index] = struct{}{}
				doc.OrigElements = append(doc.OrigElements, elt)
				doc.Paragraphs = append(doc.Paragraphs, r.expand(elt, box.Box)...)
			}
		}
	}
	return doc
}

// expand 把元素展开成段落流：表格取与外框重叠的单元格
func (r *Reader) expand(elt *Element, box []float64) []*Element {
	if elt.Class != ClassTable {
		return []*Element{elt}
	}
	var paras []*Element
	for _, cell := range elt.Cells {
		if overlapPercent(cell.Outline, box) <= 0 {
			continue
		}
		paras = append(paras, &Element{
			Index:   elt.Index,
			Page:    cell.Page,
			Class:   ClassParagraph,
			Text:    cell.Text,
			Outline: cell.Outline,
		})
	}
	if len(paras) == 0 {
		paras = append(paras, &Element{Index: elt.Index, Page: elt.Page, Class: ClassParagraph, Text: elt.Text, Outline: elt.Outline})
	}
	return paras
}

// FakeInterdocs 为一组答案分别合成 Interdoc，键由 keyFunc 从答案 key 导出
// 章节比对用：整章答案的元素块在这里一次性定位
func (r *Reader) FakeInterdocs(answers []*answer.Answer, keyFunc func(string) string) map[string]*Interdoc {
	docs := make(map[string]*Interdoc, len(answers))
	for _, ans := range answers {
		if len(ans.Data) == 0 {
			continue
		}
		docs[keyFunc(ans.Key)] = r.InterdocFromPayloads(ans.Data)
	}
	return docs
}
