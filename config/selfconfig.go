package config

import (
	"fmt"
	"sync"

	"k8s.io/klog/v2"
)

// 章节比对涉及的 schema 名称
const (
	MoldFundContract       = "华夏营销部-基金合同V1"
	MoldProspectus         = "华夏营销部-招募说明书V1"
	MoldCustodyAgreement   = "华夏营销部-托管协议V1"
	MoldRiskDisclosure     = "华夏营销部-风险揭示书V1"
	MoldRequestLetter      = "华夏营销部-承诺函V1"
	ChapterMoldFund        = "标注章节对比 基金合同V1"
	ChapterMoldProspectus  = "标注章节对比 招募说明书V1"
	ChapterMoldCustody     = "标注章节对比 托管协议V1"
)

// FileType 文档类型目录项
// Serial 从 1 开始且必须与列表位置一致，不一致时记日志并纠正
type FileType struct {
	Name          string   `yaml:"name"`
	Serial        int      `yaml:"serial"`
	Required      bool     `yaml:"required"`
	QuantityLimit int      `yaml:"quantity_limit"`
	Molds         []string `yaml:"molds"`
}

// CheckPoint 章节比对审核点
type CheckPoint struct {
	Name      string `yaml:"name"`
	LeftMold  string `yaml:"left_mold"`
	LeftKey   string `yaml:"left_key"`
	RightMold string `yaml:"right_mold"`
	RightKey  string `yaml:"right_key"`
}

// SelfConfig 比对目录：文档类型与章节审核点
// 启动时构建一次，之后只读
type SelfConfig struct {
	FileTypes   []FileType
	CheckPoints []CheckPoint

	requiredTypes    map[string]struct{}
	validTypes       []string
	checkPointsMolds map[string][]string
}

var (
	selfCfg     *SelfConfig
	selfCfgOnce sync.Once
)

// GetSelfConfig 返回进程级比对目录，配置非法时 panic（启动即失败）
func GetSelfConfig() *SelfConfig {
	selfCfgOnce.Do(func() {
		c := defaultSelfConfig()
		if err := c.build(); err != nil {
			klog.Fatalf("比对目录配置非法: %v", err)
		}
		selfCfg = c
	})
	return selfCfg
}

// RequiredTypes 必传文档类型集合
func (c *SelfConfig) RequiredTypes() map[string]struct{} {
	return c.requiredTypes
}

// ValidTypes 文档类型名称，按目录顺序
func (c *SelfConfig) ValidTypes() []string {
	return c.validTypes
}

// TypeIndex 文档类型的目录位置，未知类型返回大序号沉底
func (c *SelfConfig) TypeIndex(name string) int {
	for i, t := range c.validTypes {
		if t == name {
			return i
		}
	}
	return len(c.validTypes) + 100
}

// CheckPointsMolds 章节比对涉及的 schema -> 章节 key 列表
func (c *SelfConfig) CheckPointsMolds() map[string][]string {
	return c.checkPointsMolds
}

// FileTypeByName 按名称查找文档类型
func (c *SelfConfig) FileTypeByName(name string) (FileType, bool) {
	for _, t := range c.FileTypes {
		if t.Name == name {
			return t, true
		}
	}
	return FileType{}, false
}

func (c *SelfConfig) build() error {
	c.requiredTypes = make(map[string]struct{})
	c.validTypes = make([]string, 0, len(c.FileTypes))
	declaredMolds := make(map[string]struct{})
	for i := range c.FileTypes {
		ft := &c.FileTypes[i]
		if ft.Serial != i+1 {
			klog.Warningf("文档类型 %s 的序号 %d 与位置 %d 不一致, 已纠正", ft.Name, ft.Serial, i+1)
			ft.Serial = i + 1
		}
		c.validTypes = append(c.validTypes, ft.Name)
		if ft.Required {
			c.requiredTypes[ft.Name] = struct{}{}
		}
		for _, mold := range ft.Molds {
			declaredMolds[mold] = struct{}{}
		}
	}

	c.checkPointsMolds = make(map[string][]string)
	for _, cp := range c.CheckPoints {
		if _, ok := declaredMolds[cp.LeftMold]; !ok {
			return fmt.Errorf("审核点 %s 引用了未声明的 schema: %s", cp.Name, cp.LeftMold)
		}
		if _, ok := declaredMolds[cp.RightMold]; !ok {
			return fmt.Errorf("审核点 %s 引用了未声明的 schema: %s", cp.Name, cp.RightMold)
		}
		c.checkPointsMolds[cp.LeftMold] = append(c.checkPointsMolds[cp.LeftMold], cp.LeftKey)
		c.checkPointsMolds[cp.RightMold] = append(c.checkPointsMolds[cp.RightMold], cp.RightKey)
	}
	return nil
}

func defaultSelfConfig() *SelfConfig {
	return &SelfConfig{
		FileTypes: []FileType{
			{Name: "基金合同", Serial: 1, Required: true, QuantityLimit: 1, Molds: []string{MoldFundContract, ChapterMoldFund}},
			{Name: "招募说明书", Serial: 2, Required: true, QuantityLimit: 1, Molds: []string{MoldProspectus, ChapterMoldProspectus}},
			{Name: "托管协议", Serial: 3, Required: true, QuantityLimit: 1, Molds: []string{MoldCustodyAgreement, ChapterMoldCustody}},
			{Name: "风险揭示书", Serial: 4, Required: false, QuantityLimit: 1, Molds: []string{MoldRiskDisclosure}},
			{Name: "承诺函", Serial: 5, Required: false, QuantityLimit: 5, Molds: []string{MoldRequestLetter}},
		},
		CheckPoints: []CheckPoint{
			{Name: "基金份额持有人、基金管理人和基金托管人的权利、义务", LeftMold: ChapterMoldProspectus, LeftKey: "001基金份额持有人、基金管理人和基金托管人的权利、义务", RightMold: ChapterMoldFund, RightKey: "001基金份额持有人、基金管理人和基金托管人的权利、义务"},
			{Name: "基金份额持有人大会召集、议事及表决的程序和规则", LeftMold: ChapterMoldProspectus, LeftKey: "002基金份额持有人大会召集、议事及表决的程序和规则", RightMold: ChapterMoldFund, RightKey: "002基金份额持有人大会召集、议事及表决的程序和规则"},
			{Name: "基金收益分配原则、执行方式", LeftMold: ChapterMoldProspectus, LeftKey: "003基金收益分配原则、执行方式", RightMold: ChapterMoldFund, RightKey: "003基金收益分配原则、执行方式"},
			{Name: "与基金财产管理、运用有关费用的提取、支付方式与比例", LeftMold: ChapterMoldProspectus, LeftKey: "004与基金财产管理、运用有关费用的提取、支付方式与比例", RightMold: ChapterMoldFund, RightKey: "004与基金财产管理、运用有关费用的提取、支付方式与比例"},
			{Name: "基金财产的投资方向和投资限制", LeftMold: ChapterMoldProspectus, LeftKey: "005基金财产的投资方向和投资限制", RightMold: ChapterMoldFund, RightKey: "005基金财产的投资方向和投资限制"},
			{Name: "基金资产净值的计算方法和公告方式", LeftMold: ChapterMoldProspectus, LeftKey: "006基金资产净值的计算方法和公告方式", RightMold: ChapterMoldFund, RightKey: "006基金资产净值的计算方法和公告方式"},
			{Name: "基金合同解除和终止的事由、程序以及基金财产清算方式", LeftMold: ChapterMoldProspectus, LeftKey: "007基金合同解除和终止的事由、程序以及基金财产清算方式", RightMold: ChapterMoldFund, RightKey: "007基金合同解除和终止的事由、程序以及基金财产清算方式"},
			{Name: "争议解决方式", LeftMold: ChapterMoldProspectus, LeftKey: "008争议解决方式", RightMold: ChapterMoldFund, RightKey: "008争议解决方式"},
			{Name: "基金合同存放地和投资者取得基金合同的方式", LeftMold: ChapterMoldProspectus, LeftKey: "009基金合同存放地和投资者取得基金合同的方式", RightMold: ChapterMoldFund, RightKey: "009基金合同存放地和投资者取得基金合同的方式"},
			{Name: "托管协议当事人", LeftMold: ChapterMoldProspectus, LeftKey: "010托管协议当事人", RightMold: ChapterMoldCustody, RightKey: "001托管协议当事人"},
			{Name: "基金托管人对基金管理人的业务监督和核查", LeftMold: ChapterMoldProspectus, LeftKey: "011基金托管人对基金管理人的业务监督和核查", RightMold: ChapterMoldCustody, RightKey: "002基金托管人对基金管理人的业务监督和核查"},
			{Name: "基金管理人对基金托管人的业务核查", LeftMold: ChapterMoldProspectus, LeftKey: "012基金管理人对基金托管人的业务核查", RightMold: ChapterMoldCustody, RightKey: "003基金管理人对基金托管人的业务核查"},
			{Name: "基金财产的保管", LeftMold: ChapterMoldProspectus, LeftKey: "013基金财产的保管", RightMold: ChapterMoldCustody, RightKey: "004基金财产的保管"},
			{Name: "基金资产净值计算与复核", LeftMold: ChapterMoldProspectus, LeftKey: "014基金资产净值计算与复核", RightMold: ChapterMoldCustody, RightKey: "005基金资产净值计算与复核"},
			{Name: "基金份额持有人名册的登记与保管", LeftMold: ChapterMoldProspectus, LeftKey: "015基金份额持有人名册的登记与保管", RightMold: ChapterMoldCustody, RightKey: "006基金份额持有人名册的登记与保管"},
			{Name: "争议解决方式", LeftMold: ChapterMoldProspectus, LeftKey: "016争议解决方式", RightMold: ChapterMoldCustody, RightKey: "007争议解决方式"},
			{Name: "托管协议的变更、终止", LeftMold: ChapterMoldProspectus, LeftKey: "017托管协议的变更、终止", RightMold: ChapterMoldCustody, RightKey: "008托管协议的变更、终止"},
		},
	}
}
