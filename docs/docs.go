// Package docs registers the OpenAPI document served by the swagger UI.
// Keep it in step with the handler annotations when routes change.
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
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/api/contacts": {
            "get": {
                "tags": ["contacts"],
                "summary": "List contacts",
                "description": "Contacts of the calling customer, newest first",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": true}}
                }
            },
            "post": {
                "tags": ["contacts"],
                "summary": "Create contact",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"description": "Contact", "name": "contact", "in": "body", "required": true, "schema": {"$ref": "#/definitions/contact.ContactInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": true}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": true}}
                }
            },
            "put": {
                "tags": ["contacts"],
                "summary": "Update contact",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"description": "Contact", "name": "contact", "in": "body", "required": true, "schema": {"$ref": "#/definitions/contact.UpdateContactRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": true}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": true}}
                }
            },
            "delete": {
                "tags": ["contacts"],
                "summary": "Delete contact",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Contact ID", "name": "id", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": true}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/api/contacts/export": {
            "get": {
                "tags": ["contacts"],
                "summary": "Export contacts as xlsx",
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "responses": {"200": {"description": "OK", "schema": {"type": "file"}}}
            }
        },
        "/api/contacts/import": {
            "post": {
                "tags": ["contacts"],
                "summary": "Import contacts from xlsx",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "file", "description": "Spreadsheet", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/contact.ImportResult"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/api/integration/setup/pronouns": {
            "post": {
                "tags": ["integration"],
                "summary": "Ensure the pronouns field exists in every connected CRM",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": true}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/api/sync/links": {
            "get": {
                "tags": ["sync"],
                "summary": "List CRM links",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Contact ID", "name": "contactId", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/api/sync/conflicts": {
            "get": {
                "tags": ["sync"],
                "summary": "List field conflicts",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Contact ID", "name": "contactId", "in": "query"},
                    {"type": "integer", "description": "Max rows (default 50, max 500)", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/api/sync/logs": {
            "get": {
                "tags": ["sync"],
                "summary": "List sync runs",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "hubspot or pipedrive", "name": "provider", "in": "query"},
                    {"type": "integer", "description": "Max rows (default 50, max 500)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/api/audit-logs": {
            "get": {
                "tags": ["audit"],
                "summary": "List audit logs",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Module", "name": "module", "in": "query"},
                    {"type": "string", "description": "Record ID", "name": "record_id", "in": "query"},
                    {"type": "integer", "description": "Page", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Limit", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/health": {
            "get": {
                "security": [],
                "tags": ["health"],
                "summary": "Health Check",
                "description": "Check if the server is up",
                "produces": ["text/plain"],
                "responses": {"200": {"description": "OK", "schema": {"type": "string"}}}
            }
        }
    },
    "definitions": {
        "contact.ContactInput": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "jobTitle": {"type": "string"},
                "pronouns": {"type": "string"}
            }
        },
        "contact.UpdateContactRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "jobTitle": {"type": "string"},
                "pronouns": {"type": "string"}
            }
        },
        "contact.ImportResult": {
            "type": "object",
            "properties": {
                "imported": {"type": "integer"},
                "skipped": {"type": "array", "items": {"$ref": "#/definitions/contact.SkippedRow"}}
            }
        },
        "contact.SkippedRow": {
            "type": "object",
            "properties": {
                "row": {"type": "integer"},
                "error": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Contacts Sync API",
	Description:      "Customer-scoped contacts with CRM pronouns field provisioning and sync bookkeeping.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
