package answer

import "strings"

// Groups 按 schema 标签归并后的答案组，保持首次出现顺序
type Groups struct {
	order  []string
	byName map[string][]*Answer
}

// GroupByLabel 把叶子答案按标签（去序号的末段）归并
func GroupByLabel(node *Node) *Groups {
	g := &Groups{byName: make(map[string][]*Answer)}
	if node == nil {
		return g
	}
	for _, ans := range node.Items {
		label := StripSerial(ans.Schema)
		if _, ok := g.byName[label]; !ok {
			g.order = append(g.order, label)
		}
		g.byName[label] = append(g.byName[label], ans)
	}
	return g
}

// Labels 标签列表，按首次出现顺序
func (g *Groups) Labels() []string {
	return g.order
}

// Get 某标签下的答案
func (g *Groups) Get(label string) []*Answer {
	return g.byName[label]
}

// Set 覆盖某标签下的答案，新的标签追加到末尾
func (g *Groups) Set(label string, answers []*Answer) {
	if _, ok := g.byName[label]; !ok {
		g.order = append(g.order, label)
	}
	g.byName[label] = answers
}

// Len 标签数量
func (g *Groups) Len() int {
	return len(g.order)
}

// Merge 把其他分组的同标签答案并入 base（跨文档比对的归并步骤）
func Merge(base *Groups, others ...*Groups) *Groups {
	if base == nil {
		base = &Groups{byName: make(map[string][]*Answer)}
	}
	for _, other := range others {
		if other == nil {
			continue
		}
		for _, label := range base.order {
			base.byName[label] = append(base.byName[label], other.byName[label]...)
		}
	}
	return base
}

// MergeAnswer 把一个答案的多组 payload 合并成一组（boxes 并入第一组）
// 例外：承诺函的基金名称按页分组，每页一组
func MergeAnswer(ans *Answer) {
	if len(ans.Data) == 0 {
		return
	}
	if strings.Contains(ans.Key, "001基金名称") && strings.Contains(ans.Key, "承诺函") {
		byPage := make(map[int][]*Payload)
		var pages []int
		for _, item := range ans.Data {
			if len(item.Boxes) == 0 {
				continue
			}
			page := item.Boxes[0].Page
			if _, ok := byPage[page]; !ok {
				pages = append(pages, page)
			}
			byPage[page] = append(byPage[page], item)
		}
		ans.Data = ans.Data[:0]
		for _, page := range pages {
			items := byPage[page]
			head := items[0]
			for _, follow := range items[1:] {
				head.Boxes = append(head.Boxes, follow.Boxes...)
			}
			ans.Data = append(ans.Data, head)
		}
		return
	}
	head := ans.Data[0]
	for _, follow := range ans.Data[1:] {
		head.Boxes = append(head.Boxes, follow.Boxes...)
	}
	ans.Data = []*Payload{head}
}
