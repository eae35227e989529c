// Package docs registers the OpenAPI description served under /swagger.
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
        "/v1/tracking": {
            "get": {
                "description": "Fetches the carrier state of the code, stores it and returns the stored record.",
                "produces": ["application/json"],
                "tags": ["tracking"],
                "summary": "Reconcile a tracking code",
                "parameters": [
                    {"type": "string", "description": "Tracking code", "name": "code", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.trackingResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.errorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/api.errorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/v1/tracking/{code}": {
            "get": {
                "description": "Returns the last reconciled state without contacting the carrier.",
                "produces": ["application/json"],
                "tags": ["tracking"],
                "summary": "Get a stored tracking record",
                "parameters": [
                    {"type": "string", "description": "Tracking code", "name": "code", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.trackingResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/v1/sweeps": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Reconciles every pending record and reports the outcome.",
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Run a sweep now",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.sweepResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/v1/providers": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "List carrier providers",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.providersResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.errorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "handler.eventResponse": {
            "type": "object",
            "properties": {
                "timestamp": {"type": "string"},
                "status": {"type": "string"},
                "status_code": {"type": "integer"},
                "location": {"type": "string"}
            }
        },
        "handler.trackingResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "tracking_code": {"type": "string"},
                "carrier": {"type": "string"},
                "delivered": {"type": "boolean"},
                "latest_event": {"$ref": "#/definitions/handler.eventResponse"},
                "events": {"type": "array", "items": {"$ref": "#/definitions/handler.eventResponse"}},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "handler.sweepResponse": {
            "type": "object",
            "properties": {
                "sweep_id": {"type": "string"},
                "started_at": {"type": "string"},
                "duration_ms": {"type": "integer"},
                "pending": {"type": "integer"},
                "reconciled": {"type": "integer"},
                "notified": {"type": "integer"},
                "failed": {"type": "integer"}
            }
        },
        "handler.providersResponse": {
            "type": "object",
            "properties": {
                "active": {"type": "string"},
                "providers": {"type": "array", "items": {"type": "string"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Tracking Service API",
	Description:      "Reconciles carrier tracking state and publishes status changes.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
