// Package docs holds the OpenAPI description of the admin API, registered
// with swag so gin-swagger can serve it under /swagger/*any.
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
        "/contacts": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Contacts"],
                "summary": "List contacts (paginated)",
                "operationId": "listContacts",
                "parameters": [
                    {"enum": ["pending", "contacted_1", "follow_up_1", "follow_up_2", "follow_up_3", "responded"], "type": "string", "description": "Lifecycle status", "name": "status", "in": "query"},
                    {"minimum": 1, "type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "default": 20, "description": "Items per page", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListContactsResponse"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Contacts"],
                "summary": "Add a contact",
                "operationId": "createContact",
                "parameters": [
                    {"description": "Contact attributes", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.NewContactInput"}}
                ],
                "responses": {
                    "200": {"description": "Already present", "schema": {"$ref": "#/definitions/domain.Contact"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Contact"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/contacts/bulk": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Contacts"],
                "summary": "Import contacts",
                "operationId": "importContacts",
                "parameters": [
                    {"description": "Contacts to add (max 5000)", "name": "body", "in": "body", "required": true, "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.NewContactInput"}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.BulkResult"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/contacts/{id}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Contacts"],
                "summary": "Get a contact",
                "operationId": "getContact",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "Contact ID (UUID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Contact"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Contact not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/campaign/stats": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Campaign"],
                "summary": "Campaign statistics",
                "operationId": "campaignStats",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.Statistics"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/campaign/status": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Campaign"],
                "summary": "Scheduler status",
                "operationId": "campaignStatus",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.SchedulerStatus"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/campaign/eligible": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Campaign"],
                "summary": "Eligible contacts",
                "operationId": "eligibleContacts",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.EligibleResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/campaign/run": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Campaign"],
                "summary": "Run a batch",
                "operationId": "runBatch",
                "parameters": [
                    {"type": "boolean", "default": false, "description": "Block until the run completes", "name": "wait", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.BatchResult"}},
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/handlers.RunStartedResponse"}},
                    "409": {"description": "A run is already in progress", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Mail transport unavailable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/replies": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Replies"],
                "summary": "Record a reply",
                "operationId": "recordReply",
                "parameters": [
                    {"description": "Reply", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.ReplyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ReplyResponse"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Contact": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "name": {"type": "string"},
                "company_name": {"type": "string"},
                "city": {"type": "string"},
                "status": {"type": "string"},
                "last_contacted": {"type": "string"},
                "responded_at": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"},
                "message_history": {"type": "array", "items": {"$ref": "#/definitions/domain.MessageRecord"}}
            }
        },
        "domain.MessageRecord": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "sent_at": {"type": "string"},
                "template_variant": {"type": "integer"},
                "subject_variant": {"type": "integer"},
                "provider_message_id": {"type": "string"}
            }
        },
        "domain.NewContactInput": {
            "type": "object",
            "properties": {
                "email": {"type": "string", "example": "jane@example.com"},
                "first_name": {"type": "string", "example": "Jane"},
                "last_name": {"type": "string", "example": "Doe"},
                "name": {"type": "string", "example": "Jane Doe"},
                "company_name": {"type": "string", "example": "Acme Realty"},
                "city": {"type": "string", "example": "Milford"}
            }
        },
        "domain.EligiblePair": {
            "type": "object",
            "properties": {
                "contact": {"$ref": "#/definitions/domain.Contact"},
                "message_type": {"type": "string"}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"},
                "code": {"type": "string", "example": "not_found"},
                "message": {"type": "string", "example": "contact not found"}
            }
        },
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"},
                "has_next": {"type": "boolean"}
            }
        },
        "handlers.ListContactsResponse": {
            "type": "object",
            "properties": {
                "contacts": {"type": "array", "items": {"$ref": "#/definitions/domain.Contact"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "handlers.EligibleResponse": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "by_type": {"type": "object", "additionalProperties": {"type": "integer"}},
                "pairs": {"type": "array", "items": {"$ref": "#/definitions/domain.EligiblePair"}}
            }
        },
        "handlers.RunStartedResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "started"}
            }
        },
        "handlers.ReplyRequest": {
            "type": "object",
            "properties": {
                "from": {"type": "string", "example": "Jane Doe <jane@example.com>"},
                "subject": {"type": "string", "example": "Re: Quick question about Acme Realty"},
                "body": {"type": "string", "example": "Sounds interesting, let's talk."},
                "email": {"type": "string", "example": "jane@example.com"},
                "legitimate": {"type": "boolean", "example": true}
            }
        },
        "handlers.ReplyResponse": {
            "type": "object",
            "properties": {
                "sender": {"type": "string"},
                "legitimate": {"type": "boolean"},
                "responded": {"type": "boolean"}
            }
        },
        "services.BatchResult": {
            "type": "object",
            "properties": {
                "sent": {"type": "integer"},
                "failed": {"type": "integer"},
                "skipped": {"type": "integer"},
                "reason": {"type": "string"}
            }
        },
        "services.BulkResult": {
            "type": "object",
            "properties": {
                "added": {"type": "integer"},
                "skipped": {"type": "integer"},
                "errors": {"type": "array", "items": {"type": "string"}}
            }
        },
        "services.Statistics": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "pending": {"type": "integer"},
                "contacted_1": {"type": "integer"},
                "follow_up_1": {"type": "integer"},
                "follow_up_2": {"type": "integer"},
                "follow_up_3": {"type": "integer"},
                "responded": {"type": "integer"},
                "contacted_today": {"type": "integer"},
                "need_follow_up_1": {"type": "integer"},
                "need_follow_up_2": {"type": "integer"},
                "need_follow_up_3": {"type": "integer"}
            }
        },
        "services.SchedulerStatus": {
            "type": "object",
            "properties": {
                "is_sending": {"type": "boolean"},
                "is_business_hours": {"type": "boolean"},
                "daily_sent": {"type": "integer"},
                "statistics": {"$ref": "#/definitions/services.Statistics"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "X-API-Key", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Outreach Admin API",
	Description:      "Contacts, campaign status and manual batch runs for the email drip outreach service.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
