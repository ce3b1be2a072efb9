// Package docs registers the OpenAPI document served by the swagger build
// of mnistd (see httpapi.MountSwagger). Keep it in sync with the handler
// annotations in cmd/mnistd/docs.go.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "mnistd maintainers"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/classify": {
            "post": {
                "description": "Any POST whose path ends in /classify is routed here. The actor identity comes from the edge geo header or a fixed key.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Classify a 28x28 digit",
                "parameters": [
                    {
                        "description": "784 grayscale intensities in [0,255], row-major",
                        "name": "pixels",
                        "in": "body",
                        "required": true,
                        "schema": {"type": "array", "items": {"type": "number"}}
                    }
                ],
                "responses": {
                    "200": {"description": "10 class probabilities", "schema": {"type": "array", "items": {"type": "number"}}},
                    "400": {"description": "malformed input", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "actor mailbox full", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "500": {"description": "routing metadata missing", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "model unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/decide": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Classify and pick the most likely digit",
                "parameters": [
                    {
                        "description": "784 grayscale intensities in [0,255], row-major",
                        "name": "pixels",
                        "in": "body",
                        "required": true,
                        "schema": {"type": "array", "items": {"type": "number"}}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.DecisionResponse"}},
                    "400": {"description": "malformed input", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "model unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/classify/image": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "summary": "Classify an uploaded PNG, JPEG or GIF",
                "parameters": [
                    {"type": "file", "description": "digit image", "name": "image", "in": "formData", "required": true},
                    {"type": "boolean", "description": "invert dark-on-light drawings", "name": "invert", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "10 class probabilities", "schema": {"type": "array", "items": {"type": "number"}}},
                    "400": {"description": "bad image", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "summary": "Actor status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}
                }
            }
        },
        "/actors/{id}/warm": {
            "post": {
                "produces": ["application/json"],
                "summary": "Load weights for an actor ahead of traffic",
                "parameters": [{"type": "string", "description": "actor identity", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/types.WarmResponse"}},
                    "429": {"description": "actor mailbox full", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/actors/{id}": {
            "delete": {
                "summary": "Drain and drop an actor",
                "parameters": [{"type": "string", "description": "actor identity", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "no such actor", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/healthz": {
            "get": {"produces": ["text/plain"], "summary": "Liveness", "responses": {"200": {"description": "ok"}}}
        },
        "/readyz": {
            "get": {"produces": ["text/plain"], "summary": "Readiness", "responses": {"200": {"description": "ready"}, "503": {"description": "closed"}}}
        }
    },
    "definitions": {
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": 400},
                "error": {"type": "string", "example": "invalid JSON body"}
            }
        },
        "types.DecisionResponse": {
            "type": "object",
            "properties": {
                "class": {"type": "integer", "example": 7},
                "probabilities": {"type": "array", "items": {"type": "number"}}
            }
        },
        "types.WarmResponse": {
            "type": "object",
            "properties": {
                "identity": {"type": "string", "example": "EU"},
                "status": {"type": "string", "example": "accepted"}
            }
        },
        "types.ActorStatus": {
            "type": "object",
            "properties": {
                "identity": {"type": "string"},
                "instance_id": {"type": "string"},
                "state": {"type": "string"},
                "queue_len": {"type": "integer"},
                "inflight": {"type": "integer"},
                "max_queue_depth": {"type": "integer"},
                "last_used_unix": {"type": "integer"},
                "loaded_at_unix": {"type": "integer"},
                "precision": {"type": "string"},
                "digest": {"type": "string"},
                "served": {"type": "integer"},
                "load_failures": {"type": "integer"},
                "last_error": {"type": "string"}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "actors": {"type": "array", "items": {"$ref": "#/definitions/types.ActorStatus"}},
                "state": {"type": "string"},
                "weights_key": {"type": "string"},
                "last_error": {"type": "string"},
                "uptime_seconds": {"type": "integer"},
                "server_time_unix": {"type": "integer"},
                "loads_total": {"type": "integer"},
                "load_failures_total": {"type": "integer"},
                "evictions_total": {"type": "integer"},
                "warmups_in_progress": {"type": "integer"},
                "draining_count": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "mnistd API",
	Description:      "Handwritten digit classification served by per-region model actors.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
