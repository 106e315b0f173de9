package compare

import (
	"fmt"
	"regexp"
	"strings"

	"k8s.io/klog/v2"

	"github.com/scriber/fundcompare/internal/diff"
	"github.com/scriber/fundcompare/internal/pdfreader"
)

var (
	pEmptyDiff = regexp.MustCompile(`<[su]>[\r\n]+</[su]>`)
	pJunkDiff  = regexp.MustCompile(fmt.Sprintf(`<[su]>([%s]+)[\r\n]</[su]>`, diff.RPunctuation))
)

// simpleTextDiff 逐字符比对两段文本
func simpleTextDiff(base, other string) (bool, string) {
	d := diff.CompareTwoText(base, other)
	return d.Equal(), d.HTMLDiffContent
}

// simpleInterdocDiff 结构化比对两个文档视图
// 段落对齐失败时退化为整段文本比对
func simpleInterdocDiff(left, right *pdfreader.Interdoc) (bool, string) {
	equal, html := func() (bool, string) {
		ops := diff.Calliper(left, right, diff.DefaultParams())
		if len(ops) == 0 {
			klog.V(6).Infof("段落比对无结果, 退化为文本比对")
			return simpleTextDiff(left.Text(), right.Text())
		}
		return diff.AllEqual(ops), mergeCalliperDiff(ops)
	}()
	html = pEmptyDiff.ReplaceAllString(html, "<s>\n</s>")
	return equal, html
}

// mergeCalliperDiff 把段落级比对结果渲染为 HTML
// 插入段包 <u>，删除段包 <s>，改写段落内做逐字符比对
func mergeCalliperDiff(ops []*diff.Op) string {
	texts := make([]string, 0, len(ops))
	for _, op := range ops {
		switch op.Type {
		case diff.OpInsert:
			texts = append(texts, "<u>"+joinTexts(op.Right, "")+"</u>")
		case diff.OpDelete:
			texts = append(texts, "<s>"+joinTexts(op.Left, "")+"</s>")
		case diff.OpEqual:
			texts = append(texts, joinTexts(op.Right, ""))
		default:
			_, diffText := simpleTextDiff(joinTexts(op.Left, "\n"), joinTexts(op.Right, "\n"))
			diffText = pEmptyDiff.ReplaceAllString(diffText, "\n")
			diffText = pJunkDiff.ReplaceAllString(diffText, "$1\n")
			texts = append(texts, diffText)
		}
	}
	return strings.Join(texts, "\n")
}

func joinTexts(elements []*pdfreader.Element, sep string) string {
	parts := make([]string, 0, len(elements))
	for _, elt := range elements {
		parts = append(parts, elt.Text)
	}
	return strings.Join(parts, sep)
}
