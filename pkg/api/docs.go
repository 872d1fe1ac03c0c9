package api

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
        "/health": {
            "get": {
                "description": "Get the health status of the API",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/scripts/decode": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Convert a compiled script into its JSON document",
                "consumes": ["application/octet-stream"],
                "produces": ["application/json"],
                "tags": ["scripts"],
                "summary": "Decode a compiled script",
                "parameters": [
                    {"description": "Compiled script", "name": "body", "in": "body", "required": true, "schema": {"type": "string", "format": "binary"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/scripts/encode": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Convert a JSON document back into a compiled script",
                "consumes": ["application/json"],
                "produces": ["application/octet-stream"],
                "tags": ["scripts"],
                "summary": "Encode a compiled script",
                "parameters": [
                    {"description": "Script document", "name": "body", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "string", "format": "binary"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/tables/decode": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Convert a binary table into JSON or CSV",
                "consumes": ["application/octet-stream"],
                "produces": ["application/json", "text/csv"],
                "tags": ["tables"],
                "summary": "Decode a config table",
                "parameters": [
                    {"type": "string", "description": "json (default) or csv", "name": "format", "in": "query"},
                    {"description": "Binary table", "name": "body", "in": "body", "required": true, "schema": {"type": "string", "format": "binary"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "string"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/tables/encode": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Convert a JSON or CSV table into its binary form",
                "consumes": ["application/json", "text/csv"],
                "produces": ["application/octet-stream"],
                "tags": ["tables"],
                "summary": "Encode a config table",
                "parameters": [
                    {"type": "string", "description": "json (default) or csv", "name": "format", "in": "query"},
                    {"description": "Table document", "name": "body", "in": "body", "required": true, "schema": {"type": "string"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "string", "format": "binary"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/runs": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "List journaled batch runs, newest first",
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "List runs",
                "parameters": [
                    {"type": "integer", "description": "Maximum number of runs", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/runs/{id}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Get the per-file results of one journaled run",
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Get a run",
                "parameters": [
                    {"type": "string", "description": "Run ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {},
                "error": {"type": "string"},
                "kind": {"type": "string"},
                "field": {"type": "string"},
                "offset": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "X-API-Key", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "nexas REST API",
	Description:      "Converts NeXAS compiled scripts and config tables to and from their text forms.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
