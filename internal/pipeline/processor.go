// Package pipeline 定义了文件内容处理的核心流程：文本提取 -> 自动打标签。
// 每个阶段只会降级，不会让调用方的入库操作失败。
package pipeline

import (
	"context"
	"fmt"
	"unicode/utf8"

	"edu-archive-go/internal/model"
	"edu-archive-go/pkg/extract"
	"edu-archive-go/pkg/log"
	"edu-archive-go/pkg/tagging"
)

// 阶段名称
const (
	StageExtract = "extract"
	StageOCR     = "ocr"
	StageAutoTag = "autotag"
	StageIndex   = "index"
	StageAudit   = "audit"
)

// Warning 描述某个阶段的一次降级。
type Warning struct {
	Stage string
	Err   error
}

func (w Warning) Error() string {
	return fmt.Sprintf("%s: %v", w.Stage, w.Err)
}

// Diagnostics 收集一次编排过程中的所有降级。
type Diagnostics struct {
	Warnings []Warning
}

// Add 记录一次降级，err 为 nil 时忽略。
func (d *Diagnostics) Add(stage string, err error) {
	if err != nil {
		d.Warnings = append(d.Warnings, Warning{Stage: stage, Err: err})
	}
}

// Stages 返回出现过降级的阶段（可重复）。
func (d Diagnostics) Stages() []string {
	stages := make([]string, 0, len(d.Warnings))
	for _, w := range d.Warnings {
		stages = append(stages, w.Stage)
	}
	return stages
}

// ContentExtractor 是 Processor 依赖的文本提取能力。
type ContentExtractor interface {
	Extract(ctx context.Context, path, mediaType string) extract.Result
}

// Input 是一次处理的输入。
type Input struct {
	Path       string
	MediaType  string
	Title      string
	Attached   []model.Tag
	Vocabulary []model.Tag
}

// Output 是一次处理的输出。MatchedTags 只包含新匹配到的标签。
type Output struct {
	Text        string
	Strategy    string
	MatchedTags []model.Tag
	Diagnostics Diagnostics
}

// Processor 封装了文件处理的所有依赖和逻辑。
type Processor struct {
	extractor ContentExtractor
	matcher   tagging.Matcher
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(extractor ContentExtractor, matcher tagging.Matcher) *Processor {
	return &Processor{extractor: extractor, matcher: matcher}
}

// Process 是文件处理的主函数。
func (p *Processor) Process(ctx context.Context, in Input) Output {
	var out Output

	log.Infof("[Processor] 步骤1: 提取文本, path: %s, mediaType: %s", in.Path, in.MediaType)
	res := p.extractor.Extract(ctx, in.Path, in.MediaType)
	out.Text = res.Text
	out.Strategy = res.Strategy
	for _, w := range res.Warnings {
		stage := StageExtract
		if res.Strategy == extract.StrategyImageOCR || res.Strategy == extract.StrategyPDFOCR {
			stage = StageOCR
		}
		out.Diagnostics.Add(stage, w)
	}
	log.Infof("[Processor] 步骤1: 文本提取完成, strategy: %s, 内容长度: %d 字符", res.Strategy, utf8.RuneCountInString(res.Text))

	log.Info("[Processor] 步骤2: 自动匹配标签")
	matched, err := p.autoTag(in.Title, out.Text, in.Vocabulary, in.Attached)
	if err != nil {
		log.Warnf("[Processor] 自动打标签失败, path: %s, Error: %v", in.Path, err)
		out.Diagnostics.Add(StageAutoTag, err)
	}
	out.MatchedTags = matched
	log.Infof("[Processor] 步骤2: 匹配到 %d 个新标签", len(matched))

	return out
}

// Retag 只重新执行自动打标签，用于编辑时没有新文件的情况。
func (p *Processor) Retag(title, text string, vocabulary, attached []model.Tag) ([]model.Tag, Diagnostics) {
	var d Diagnostics
	matched, err := p.autoTag(title, text, vocabulary, attached)
	d.Add(StageAutoTag, err)
	return matched, d
}

func (p *Processor) autoTag(title, text string, vocabulary, attached []model.Tag) (matched []model.Tag, err error) {
	if p.matcher == nil {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			matched, err = nil, fmt.Errorf("auto-tag panic: %v", r)
		}
	}()
	return p.matcher.Match(title, text, vocabulary, attached), nil
}
