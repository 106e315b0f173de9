package diff

import (
	"github.com/scriber/fundcompare/internal/pdfreader"
)

// OpType 段落比对操作类型
type OpType string

const (
	OpEqual  OpType = "equal"
	OpInsert OpType = "para_insert"
	OpDelete OpType = "para_delete"
	OpModify OpType = "para_modify"
)

// Op 一条段落级比对结果
type Op struct {
	Type  OpType
	Left  []*pdfreader.Element
	Right []*pdfreader.Element
}

// Params 段落比对参数
type Params struct {
	IgnoreCase           bool
	IgnorePunctuations   bool
	IgnoreChapterNumbers bool
	IncludeEqual         bool
	IterCount            int
}

// DefaultParams 逐答案比对使用的参数
func DefaultParams() Params {
	return Params{
		IgnoreCase:           true,
		IgnorePunctuations:   true,
		IgnoreChapterNumbers: true,
		IncludeEqual:         true,
		IterCount:            1,
	}
}

// 低于该相似度的段落不配对
const matchThreshold = 0.5

// Calliper 对齐两篇 Interdoc 的段落流并产出逐段差异
// 对齐按归一化文本的相似度做动态规划，配对后全同为 equal，否则 para_modify；
// 未配对的左段为 para_delete，右段为 para_insert
func Calliper(left, right *pdfreader.Interdoc, params Params) []*Op {
	lp, rp := left.Paragraphs, right.Paragraphs
	if len(lp) == 0 && len(rp) == 0 {
		return nil
	}

	opt := NormalizeOption{
		IgnoreCase:           params.IgnoreCase,
		IgnorePunctuations:   params.IgnorePunctuations,
		IgnoreChapterNumbers: params.IgnoreChapterNumbers,
	}
	ln := make([]string, len(lp))
	for i, para := range lp {
		ln[i] = Normalize(para.Text, opt)
	}
	rn := make([]string, len(rp))
	for j, para := range rp {
		rn[j] = Normalize(para.Text, opt)
	}

	// Needleman-Wunsch：score[i][j] 为前 i 个左段与前 j 个右段的最优配对得分
	score := make([][]float64, len(lp)+1)
	for i := range score {
		score[i] = make([]float64, len(rp)+1)
	}
	for i := 1; i <= len(lp); i++ {
		for j := 1; j <= len(rp); j++ {
			best := score[i-1][j]
			if score[i][j-1] > best {
				best = score[i][j-1]
			}
			if sim := pairScore(ln[i-1], rn[j-1]); sim >= matchThreshold {
				if v := score[i-1][j-1] + sim; v > best {
					best = v
				}
			}
			score[i][j] = best
		}
	}

	// 回溯还原操作序列
	var ops []*Op
	i, j := len(lp), len(rp)
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && pairScore(ln[i-1], rn[j-1]) >= matchThreshold &&
			score[i][j] == score[i-1][j-1]+pairScore(ln[i-1], rn[j-1]):
			typ := OpModify
			if ln[i-1] == rn[j-1] {
				typ = OpEqual
			}
			ops = append(ops, &Op{Type: typ, Left: []*pdfreader.Element{lp[i-1]}, Right: []*pdfreader.Element{rp[j-1]}})
			i, j = i-1, j-1
		case j > 0 && (i == 0 || score[i][j] == score[i][j-1]):
			ops = append(ops, &Op{Type: OpInsert, Right: []*pdfreader.Element{rp[j-1]}})
			j--
		default:
			ops = append(ops, &Op{Type: OpDelete, Left: []*pdfreader.Element{lp[i-1]}})
			i--
		}
	}
	reverse(ops)

	if !params.IncludeEqual {
		filtered := ops[:0]
		for _, op := range ops {
			if op.Type != OpEqual {
				filtered = append(filtered, op)
			}
		}
		ops = filtered
	}
	return ops
}

// AllEqual 是否全部操作均为 equal
func AllEqual(ops []*Op) bool {
	for _, op := range ops {
		if op.Type != OpEqual {
			return false
		}
	}
	return true
}

func pairScore(left, right string) float64 {
	if left == "" && right == "" {
		return 1.0
	}
	return similarity(left, right)
}

func reverse(ops []*Op) {
	for i, j := 0, len(ops)-1; i < j; i, j = i+1, j-1 {
		ops[i], ops[j] = ops[j], ops[i]
	}
}
