// Package docs registers the OpenAPI document of the JSON API.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/topics": {
            "get": {
                "produces": ["application/json"],
                "tags": ["topics"],
                "summary": "List survey topics and rating labels",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.TopicsResponse"}}
                }
            }
        },
        "/checks": {
            "post": {
                "produces": ["application/json"],
                "tags": ["checks"],
                "summary": "Create a health check",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.CreateHealthCheckResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/handler.Error"}}
                }
            }
        },
        "/checks/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["checks"],
                "summary": "Get a health check",
                "parameters": [
                    {"type": "string", "description": "Health check ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.HealthCheckInfo"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.Error"}}
                }
            }
        },
        "/checks/{id}/results": {
            "get": {
                "produces": ["application/json"],
                "tags": ["checks"],
                "summary": "Aggregated results of a health check",
                "parameters": [
                    {"type": "string", "description": "Health check ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/results.Summary"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.Error"}}
                }
            }
        },
        "/checks/{id}/sessions": {
            "post": {
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Open a participant session",
                "parameters": [
                    {"type": "string", "description": "Health check ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.SessionStartResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.Error"}}
                }
            }
        },
        "/session": {
            "get": {
                "security": [{"ParticipantToken": []}],
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Current session snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.SessionView"}}
                }
            }
        },
        "/session/begin": {
            "post": {
                "security": [{"ParticipantToken": []}],
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Start answering topics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.SessionView"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.Error"}}
                }
            }
        },
        "/session/select": {
            "post": {
                "security": [{"ParticipantToken": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Choose a rating for the current topic",
                "parameters": [
                    {"description": "Topic index and rating", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.SelectRatingRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.SessionView"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.Error"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.Error"}}
                }
            }
        },
        "/session/confirm": {
            "post": {
                "security": [{"ParticipantToken": []}],
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Confirm the selected rating and move to the next topic",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.SessionView"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.Error"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.Error"}}
                }
            }
        },
        "/session/restart": {
            "post": {
                "security": [{"ParticipantToken": []}],
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Discard collected ratings and start over",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.SessionView"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.Error"}}
                }
            }
        },
        "/session/submit": {
            "post": {
                "security": [{"ParticipantToken": []}],
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Submit the collected ratings",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.SessionView"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.Error"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/handler.Error"}}
                }
            }
        }
    },
    "definitions": {
        "handler.Error": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "handler.RatingChoice": {
            "type": "object",
            "properties": {"value": {"type": "integer"}, "label": {"type": "string"}}
        },
        "handler.TopicsResponse": {
            "type": "object",
            "properties": {
                "topics": {"type": "array", "items": {"$ref": "#/definitions/model.Topic"}},
                "ratings": {"type": "array", "items": {"$ref": "#/definitions/handler.RatingChoice"}}
            }
        },
        "model.Topic": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "positiveDescription": {"type": "string"},
                "negativeDescription": {"type": "string"}
            }
        },
        "model.CreateHealthCheckResponse": {
            "type": "object",
            "properties": {"id": {"type": "string"}, "shareUrl": {"type": "string"}}
        },
        "model.HealthCheckInfo": {
            "type": "object",
            "properties": {"id": {"type": "string"}, "responseCount": {"type": "integer"}}
        },
        "model.SelectRatingRequest": {
            "type": "object",
            "properties": {"topic": {"type": "integer"}, "rating": {"type": "integer", "enum": [0, 1, 2]}}
        },
        "model.ReviewRow": {
            "type": "object",
            "properties": {"title": {"type": "string"}, "rating": {"type": "integer"}, "label": {"type": "string"}}
        },
        "model.SessionView": {
            "type": "object",
            "properties": {
                "sessionId": {"type": "string"},
                "healthCheckId": {"type": "string"},
                "phase": {"type": "string", "enum": ["ready", "in_progress", "complete"]},
                "topicCount": {"type": "integer"},
                "currentTopic": {"type": "integer"},
                "topic": {"$ref": "#/definitions/model.Topic"},
                "topicColor": {"type": "string"},
                "candidate": {"type": "integer"},
                "collected": {"type": "array", "items": {"type": "integer"}},
                "collectedLabels": {"type": "array", "items": {"type": "string"}},
                "review": {"type": "array", "items": {"$ref": "#/definitions/model.ReviewRow"}},
                "reviewable": {"type": "boolean"},
                "submitting": {"type": "boolean"},
                "responseId": {"type": "string"}
            }
        },
        "model.SessionStartResponse": {
            "type": "object",
            "properties": {"token": {"type": "string"}, "session": {"$ref": "#/definitions/model.SessionView"}}
        },
        "results.TopicTally": {
            "type": "object",
            "properties": {
                "index": {"type": "integer"},
                "title": {"type": "string"},
                "counts": {"type": "array", "items": {"type": "integer"}},
                "responses": {"type": "integer"},
                "average": {"type": "number"},
                "bucket": {"type": "string", "enum": ["none", "low", "mid", "high"]}
            }
        },
        "results.Summary": {
            "type": "object",
            "properties": {
                "healthCheckId": {"type": "string"},
                "totalResponses": {"type": "integer"},
                "responsesText": {"type": "string"},
                "malformed": {"type": "integer"},
                "topics": {"type": "array", "items": {"$ref": "#/definitions/results.TopicTally"}}
            }
        }
    },
    "securityDefinitions": {
        "ParticipantToken": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/v1",
	Schemes:          []string{},
	Title:            "Team Health Checker API",
	Description:      "Create team health checks, answer them topic by topic and read the aggregated results.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
