package domain

import "slices"

// Difficulty represents scenario difficulty level
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Difficulties lists the levels in ascending order
var Difficulties = []Difficulty{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced}

// Valid reports whether d is one of the known levels
func (d Difficulty) Valid() bool {
	return slices.Contains(Difficulties, d)
}

// Rank orders difficulties for sorting; unknown levels sort last
func (d Difficulty) Rank() int {
	if i := slices.Index(Difficulties, d); i >= 0 {
		return i
	}
	return len(Difficulties)
}

// Topic is an OpenAPI specification area a scenario exercises
type Topic string

const (
	TopicPaths            Topic = "paths"
	TopicOperations       Topic = "operations"
	TopicParametersPath   Topic = "parameters-path"
	TopicParametersQuery  Topic = "parameters-query"
	TopicParametersHeader Topic = "parameters-header"
	TopicParametersCookie Topic = "parameters-cookie"
	TopicRequestBodies    Topic = "request-bodies"
	TopicResponses        Topic = "responses"
	TopicMediaTypes       Topic = "media-types"
	TopicSchemas          Topic = "schemas"
	TopicComponents       Topic = "components"
	TopicReferences       Topic = "references"
	TopicSecurity         Topic = "security"
	TopicTags             Topic = "tags"
	TopicServers          Topic = "servers"
	TopicInfoObject       Topic = "info"
	TopicDiscriminator    Topic = "discriminator"
	TopicCallbacks        Topic = "callbacks"
	TopicLinks            Topic = "links"
)

// Topics lists every known topic in catalog order
var Topics = []Topic{
	TopicPaths, TopicOperations,
	TopicParametersPath, TopicParametersQuery, TopicParametersHeader, TopicParametersCookie,
	TopicRequestBodies, TopicResponses, TopicMediaTypes, TopicSchemas, TopicComponents,
	TopicReferences, TopicSecurity, TopicTags, TopicServers, TopicInfoObject,
	TopicDiscriminator, TopicCallbacks, TopicLinks,
}

// Valid reports whether t is a known topic
func (t Topic) Valid() bool {
	return slices.Contains(Topics, t)
}

// ScenarioSummary is the listing view of a practice scenario
type ScenarioSummary struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Topics           []Topic    `json:"topics"`
	Difficulty       Difficulty `json:"difficulty"`
	EstimatedMinutes int        `json:"estimated_minutes"`
	Points           int        `json:"points"`
}

// HasTopic reports whether the scenario covers topic
func (s ScenarioSummary) HasTopic(topic Topic) bool {
	return slices.Contains(s.Topics, topic)
}

// Requirement is one individually scored condition of a scenario
type Requirement struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Hint        string `json:"hint,omitempty"`
	Points      int    `json:"points,omitempty"`
}

// ScenarioDetail is the full scenario shown in practice mode
type ScenarioDetail struct {
	ScenarioSummary
	Instructions string        `json:"instructions"`
	Requirements []Requirement `json:"requirements"`
	StarterCode  string        `json:"starter_code"`
}

// TopicInfo describes a topic and how many scenarios cover it
type TopicInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	ScenarioCount int    `json:"scenario_count"`
}
