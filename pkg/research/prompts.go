package research

import (
	"fmt"
	"time"
)

// PromptParams are the named parameters a prompt template is rendered with.
type PromptParams struct {
	// Reference is the rendered evidence block collected so far.
	Reference string
	// Question is the research question being answered.
	Question string
	// MaxSearchWords hints how many queries a planning round may produce.
	MaxSearchWords int
	// MetaInfo carries the current-time marker.
	MetaInfo string
}

// Template renders a prompt from named parameters.
type Template interface {
	Render(params PromptParams) string
}

// TemplateFunc adapts a function to the Template interface.
type TemplateFunc func(params PromptParams) string

// Render implements Template.
func (f TemplateFunc) Render(params PromptParams) string {
	return f(params)
}

// stopMarker in a planning result means the model decided no further
// search is needed.
const stopMarker = "无需"

// noIntentMarker in an intention reply means the intention model decided
// against searching.
const noIntentMarker = "否"

// DefaultPlanningTemplate asks the model to either emit search keywords
// separated by single spaces or the stop phrase containing stopMarker.
var DefaultPlanningTemplate Template = TemplateFunc(func(p PromptParams) string {
	return fmt.Sprintf(`%s
你是一个联网信息搜索专家，你需要根据用户的问题规划下一步的搜索。

【用户问题】
%s

【已经搜索到的资料】
%s

请判断已有资料是否足以回答用户问题：
- 如果已有资料不足，请给出下一步需要搜索的关键词，关键词之间用单个空格分隔，最多 %d 个，不要输出其他内容。
- 如果已有资料足以回答问题，请只输出：无需进一步搜索`,
		p.MetaInfo, p.Question, p.Reference, p.MaxSearchWords)
})

// DefaultSummaryTemplate produces the final answer grounded in the
// accumulated evidence.
var DefaultSummaryTemplate Template = TemplateFunc(func(p PromptParams) string {
	return fmt.Sprintf(`%s
你是一个深度研究助手，请根据搜索到的资料，详细、准确地回答用户的问题。
回答时请综合所有资料，注明信息来源于哪个查询，资料中没有的内容不要编造。

【用户问题】
%s

【搜索到的资料】
%s`,
		p.MetaInfo, p.Question, p.Reference)
})

// DefaultIntentionTemplate asks a yes/no question: is further search
// needed. A reply containing noIntentMarker stops the planning loop.
var DefaultIntentionTemplate Template = TemplateFunc(func(p PromptParams) string {
	return fmt.Sprintf(`%s
请判断以下问题是否需要进一步联网搜索才能回答，只回答"是"或"否"。

【用户问题】
%s

【已经搜索到的资料】
%s`,
		p.MetaInfo, p.Question, p.Reference)
})

func currentMetaInfo() string {
	return fmt.Sprintf("当前时间：%s", time.Now().Format("2006-01-02 15:04:05"))
}
