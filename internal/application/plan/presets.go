// Package plan 提供故事规划配置预设
package plan

import "story-studio/internal/domain/entity"

// 预设名称
const (
	Abstract  = "abstract"
	Technical = "technical"
)

const (
	defaultModel    = "claude-3-5-sonnet-20240620"
	granteeProfile  = "https://gist.github.com/zstone-cai/323e78d0b0e0f9f312105d2c1595bcbd"
	granteeUserTask = "Use the provided grantee profile to write a grant volume according to additional instructions."
)

const technicalInstructions = `Please create a Technical Proposal demonstrating your capability to implement the grant project, organized with the following sections: 1) **Project Description** (50 points), detailing services in counseling, training, access to capital, and knowledge transfer, including defining your geographic area and entrepreneurial ecosystem, describing measurable activities to support women entrepreneurs, identifying key stakeholders and partners with proof of third-party commitments, explaining how you will engage with SBA resources, and addressing efforts to engage women entrepreneurs from underserved communities; 2) **Applicant Capability** (25 points), providing a concise summary of your organization's mission, programs, relevant experience, proof of capability including financial and management infrastructure, organizational structure with duties and reporting, and one-page biographies or resumes of key personnel; 3) **Data Collection and Program Evaluation** (25 points), outlining your data collection plan including specific participant data and collection methods, plans to document lessons learned, identification of effective service models for potential replication, and how data will inform program delivery; 4) **Applicant Budget** (10 points), including the required Standard Forms SF-424 and SF-424A, and a Detailed Expenditure Worksheet with detailed justification for all budget items; and 5) **Agency Priority Points** (10 points), addressing at least two of SBA's priority areas such as promoting entrepreneurship among returning citizens, supporting rural entrepreneurial ecosystems, or increasing women's capacity to access government contracting opportunities, describing current efforts, past results, and execution plans through the WBC project. Ensure all required attachments, such as proof of third-party commitments and resumes, are included, and incorporate required travel costs for key personnel to attend specified events.`

const abstractInstructions = `Please generate an abstract of no more than one page summarizing the proposed project, including the scope of the project and proposed outcomes. The abstract must include the following sections: 1) Applicant's name; 2) Designated point of contact's telephone number and email address; 3) Web address; 4) Project title; 5) Description of the area to be served; 6) Number of participants to be served; and 7) Funding level requested.`

// base 两个预设共享的展示与检索选项
func base() entity.StoryPlanConfig {
	return entity.StoryPlanConfig{
		Format:              "custom",
		Audience:            "General",
		ResponseLanguage:    "english",
		Headers:             true,
		Paragraphs:          true,
		ImageStyle:          "auto",
		TweetCharacterLimit: 280,
		RAGBudget:           "default",
		ImageHeight:         768,
		ImageWidth:          1344,
		ResponseModel:       defaultModel,
		UserURLs:            []string{granteeProfile},
		UserPDFDocuments:    []string{},
		UserPDFURLs:         []string{},
		UserImages:          []string{},
	}
}

// AbstractConfig 一页摘要，不启用思维链
func AbstractConfig() entity.StoryPlanConfig {
	c := base()
	c.ResponseLength = "1 page"
	c.CustomInstructions = abstractInstructions
	return c
}

// TechnicalConfig 分章节的技术方案，启用思维链
func TechnicalConfig() entity.StoryPlanConfig {
	c := base()
	c.Cot = true
	c.CustomInstructions = technicalInstructions
	return c
}

// ChatConfig 异步聊天使用的技术方案配置，附带用户任务描述
func ChatConfig() entity.StoryPlanConfig {
	c := TechnicalConfig()
	c.UserQuery = granteeUserTask
	return c
}
