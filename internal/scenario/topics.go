package scenario

import "github.com/felixgeelhaar/oaspractice/internal/domain"

type topicMeta struct {
	name        string
	description string
}

var topicMetadata = map[domain.Topic]topicMeta{
	domain.TopicPaths:            {"Paths", "URL paths and path templating"},
	domain.TopicOperations:       {"Operations", "HTTP methods (GET, POST, PUT, DELETE, etc.)"},
	domain.TopicParametersPath:   {"Path Parameters", "Parameters embedded in the URL path"},
	domain.TopicParametersQuery:  {"Query Parameters", "URL query string parameters"},
	domain.TopicParametersHeader: {"Header Parameters", "HTTP header parameters"},
	domain.TopicParametersCookie: {"Cookie Parameters", "Cookie-based parameters"},
	domain.TopicRequestBodies:    {"Request Bodies", "Request body definitions"},
	domain.TopicResponses:        {"Responses", "Response definitions"},
	domain.TopicMediaTypes:       {"Media Types", "Content type handling"},
	domain.TopicSchemas:          {"Schemas", "JSON Schema definitions"},
	domain.TopicComponents:       {"Components", "Reusable component definitions"},
	domain.TopicReferences:       {"References ($ref)", "Using $ref for reusability"},
	domain.TopicSecurity:         {"Security", "Security schemes and requirements"},
	domain.TopicTags:             {"Tags", "Operation tagging and grouping"},
	domain.TopicServers:          {"Servers", "Server definitions and variables"},
	domain.TopicInfoObject:       {"Info", "API metadata"},
	domain.TopicDiscriminator:    {"Discriminator", "Polymorphism support"},
	domain.TopicCallbacks:        {"Callbacks", "Webhook definitions"},
	domain.TopicLinks:            {"Links", "Operation linking"},
}

// TopicName returns the display name of t
func TopicName(t domain.Topic) string {
	if m, ok := topicMetadata[t]; ok {
		return m.name
	}
	return string(t)
}
