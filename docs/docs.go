// Package docs holds the OpenAPI document served at /v1/docs/doc.json.
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
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/answers/{testId}": {
            "post": {
                "tags": ["answers"],
                "summary": "Submit answers to a test",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Test ID", "name": "testId", "in": "path", "required": true},
                    {"description": "Answers", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.SubmitAnswersInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.Response"}},
                    "400": {"description": "Bad Request"},
                    "404": {"description": "Not Found"},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/answers/test/{testId}": {
            "get": {
                "tags": ["answers"],
                "summary": "List responses to a test",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "description": "Test ID", "name": "testId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.Response"}}}}
            }
        },
        "/answers/user/{userId}": {
            "get": {
                "tags": ["answers"],
                "summary": "List a user's responses",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "description": "User ID", "name": "userId", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.Response"}}},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/answers/results/{testId}": {
            "get": {
                "tags": ["answers"],
                "summary": "IPA averages for a test",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "description": "Test ID", "name": "testId", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.AggregateResult"}},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/tests/{id}": {
            "get": {
                "tags": ["tests"],
                "summary": "Get a test with its questions",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "description": "Test ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/tests/group/{groupId}": {
            "get": {
                "tags": ["tests"],
                "summary": "Tests assigned to a group",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "description": "Group ID", "name": "groupId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}
            }
        },
        "/groups": {
            "get": {
                "tags": ["groups"],
                "summary": "List groups",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/groups/{id}/join": {
            "post": {
                "tags": ["groups"],
                "summary": "Join a group",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "description": "Group ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/templates": {
            "get": {
                "tags": ["templates"],
                "summary": "List templates",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["templates"],
                "summary": "Create a template",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/admin/tests": {
            "post": {
                "tags": ["tests"],
                "summary": "Create a test from a template",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/admin/tests/{id}/export.xlsx": {
            "get": {
                "tags": ["tests"],
                "summary": "Export responses as a spreadsheet",
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [{"type": "string", "description": "Test ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"type": "file"}}}
            }
        }
    },
    "definitions": {
        "service.ClosedAnswerInput": {
            "type": "object",
            "required": ["questionId", "value"],
            "properties": {
                "questionId": {"type": "string"},
                "value": {"type": "integer", "minimum": 1, "maximum": 5}
            }
        },
        "service.SubmitAnswersInput": {
            "type": "object",
            "required": ["closedAnswers"],
            "properties": {
                "closedAnswers": {"type": "array", "items": {"$ref": "#/definitions/service.ClosedAnswerInput"}},
                "openAnswer": {"type": "string"}
            }
        },
        "model.ClosedAnswer": {
            "type": "object",
            "properties": {
                "questionId": {"type": "string"},
                "value": {"type": "integer"}
            }
        },
        "model.Response": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "testId": {"type": "string"},
                "userId": {"type": "string"},
                "closedAnswers": {"type": "array", "items": {"$ref": "#/definitions/model.ClosedAnswer"}},
                "openAnswer": {"type": "string"},
                "createdAt": {"type": "string"}
            }
        },
        "model.AggregateResult": {
            "type": "object",
            "properties": {
                "avgImportance": {"type": "number"},
                "avgPerformance": {"type": "number"},
                "importanceCount": {"type": "integer"},
                "performanceCount": {"type": "integer"},
                "responseCount": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/v1",
	Schemes:          []string{},
	Title:            "IPA Survey API",
	Description:      "Importance-performance survey backend",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
