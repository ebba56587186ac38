// Package entity 定义领域实体
package entity

import "slices"

// StoryPlanConfig 故事规划配置
// 字段名与外部生成服务保持一致，原样透传，本地不做取值校验
type StoryPlanConfig struct {
	Format              string   `json:"format" yaml:"format"`
	Cot                 bool     `json:"cot" yaml:"cot"`
	Audience            string   `json:"audience" yaml:"audience"`
	ResponseLength      string   `json:"responseLength" yaml:"responseLength"`
	ResponseLanguage    string   `json:"responseLanguage" yaml:"responseLanguage"`
	HeroImage           bool     `json:"heroImage" yaml:"heroImage"`
	Title               bool     `json:"title" yaml:"title"`
	Headers             bool     `json:"headers" yaml:"headers"`
	Paragraphs          bool     `json:"paragraphs" yaml:"paragraphs"`
	Images              bool     `json:"images" yaml:"images"`
	AIImages            bool     `json:"aiImages" yaml:"aiImages"`
	ImageStyle          string   `json:"imageStyle" yaml:"imageStyle"`
	AIGraphs            bool     `json:"aiGraphs" yaml:"aiGraphs"`
	WebGraphs           bool     `json:"webGraphs" yaml:"webGraphs"`
	Metrics             bool     `json:"metrics" yaml:"metrics"`
	Tables              bool     `json:"tables" yaml:"tables"`
	Quotes              bool     `json:"quotes" yaml:"quotes"`
	Tweets              bool     `json:"tweets" yaml:"tweets"`
	TweetCharacterLimit int      `json:"tweetCharacterLimit" yaml:"tweetCharacterLimit"`
	GeneralWebSearch    bool     `json:"generalWebSearch" yaml:"generalWebSearch"`
	AcademicWebSearch   bool     `json:"academicWebSearch" yaml:"academicWebSearch"`
	UsePerplexity       bool     `json:"usePerplexity" yaml:"usePerplexity"`
	RAGBudget           string   `json:"ragBudget" yaml:"ragBudget"`
	UserQuery           string   `json:"userQuery,omitempty" yaml:"userQuery,omitempty"`
	CustomInstructions  string   `json:"customInstructions" yaml:"customInstructions"`
	ImageHeight         int      `json:"imageHeight" yaml:"imageHeight"`
	ImageWidth          int      `json:"imageWidth" yaml:"imageWidth"`
	ResponseModel       string   `json:"responseModel" yaml:"responseModel"`
	UserURLs            []string `json:"userUrls" yaml:"userUrls"`
	UserPDFDocuments    []string `json:"userPdfDocuments" yaml:"userPdfDocuments"`
	UserPDFURLs         []string `json:"userPdfUrls" yaml:"userPdfUrls"`
	UserImages          []string `json:"userImages" yaml:"userImages"`
}

// Clone 深拷贝，调用方修改副本不会影响预设
func (c StoryPlanConfig) Clone() StoryPlanConfig {
	c.UserURLs = cloneList(c.UserURLs)
	c.UserPDFDocuments = cloneList(c.UserPDFDocuments)
	c.UserPDFURLs = cloneList(c.UserPDFURLs)
	c.UserImages = cloneList(c.UserImages)
	return c
}

// cloneList 拷贝切片；nil 归一为空切片，序列化为 [] 而不是 null
func cloneList(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}
