package diff

import (
	"regexp"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// RPunctuation 比对时视为噪音的标点集合
const RPunctuation = `,.．、？?，。！!“"：:”'‘’ ;；`

var (
	pPunctuation   = regexp.MustCompile(`[,.．、？?，。！!“"：:”'‘’ ;；]`)
	pChapterNumber = regexp.MustCompile(`^[（(]?[0-9０-９一二三四五六七八九十百]+[)）、.．]?\s*`)
	pWhitespaceRun = regexp.MustCompile(`\s+`)
)

// NormalizeOption 文本归一化开关
type NormalizeOption struct {
	IgnoreCase           bool
	IgnorePunctuations   bool
	IgnoreChapterNumbers bool
}

// Normalize 按开关归一化一段文本
func Normalize(text string, opt NormalizeOption) string {
	if opt.IgnoreChapterNumbers {
		text = pChapterNumber.ReplaceAllString(text, "")
	}
	if opt.IgnorePunctuations {
		text = pPunctuation.ReplaceAllString(text, "")
	}
	if opt.IgnoreCase {
		text = strings.ToLower(text)
	}
	return pWhitespaceRun.ReplaceAllString(text, "")
}

// TextDiff 两段文本逐字符比对的结果
type TextDiff struct {
	Ratio           float64
	HTMLDiffContent string
}

// Equal 归一化后是否完全一致
func (d *TextDiff) Equal() bool {
	return d.Ratio >= 1.0
}

var dmp = diffmatchpatch.New()

// CompareTwoText 逐字符比对两段文本
// Ratio 按归一化后的文本计算，HTML 用原文渲染（插入 <u>，删除 <s>）
func CompareTwoText(left, right string) *TextDiff {
	opt := NormalizeOption{IgnoreCase: true, IgnorePunctuations: true, IgnoreChapterNumbers: true}
	cleanL, cleanR := Normalize(left, opt), Normalize(right, opt)

	ratio := similarity(cleanL, cleanR)
	diffs := dmp.DiffMain(left, right, false)
	dmp.DiffCleanupSemantic(diffs)

	var sb strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			sb.WriteString("<u>")
			sb.WriteString(d.Text)
			sb.WriteString("</u>")
		case diffmatchpatch.DiffDelete:
			sb.WriteString("<s>")
			sb.WriteString(d.Text)
			sb.WriteString("</s>")
		default:
			sb.WriteString(d.Text)
		}
	}
	return &TextDiff{Ratio: ratio, HTMLDiffContent: sb.String()}
}

// similarity 相同字符数占两串总长的比例，同 difflib 的 ratio
func similarity(left, right string) float64 {
	if left == right {
		return 1.0
	}
	lr, rr := []rune(left), []rune(right)
	if len(lr)+len(rr) == 0 {
		return 1.0
	}
	diffs := dmp.DiffMain(left, right, false)
	common := 0
	for _, d := range diffs {
		if d.Type == diffmatchpatch.DiffEqual {
			common += len([]rune(d.Text))
		}
	}
	return 2.0 * float64(common) / float64(len(lr)+len(rr))
}
