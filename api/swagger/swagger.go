package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "RUSA RBA Route Assignment API",
        "description": "Lets Regional Brevet Administrators assign approved routes to calendared events.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Workflow", "description": "Region selection, route editing and confirmation"},
        {"name": "Routes", "description": "Route eligibility lookups"}
    ],
    "paths": {
        "/rba/workflow": {
            "post": {
                "tags": ["Workflow"],
                "summary": "Start an RBA route assignment workflow",
                "produces": ["application/json"],
                "responses": {
                    "201": {"description": "Region selection view", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rba/workflow/transition": {
            "post": {
                "tags": ["Workflow"],
                "summary": "Advance the workflow by one step",
                "description": "Submit, go back, or cancel. Rejected steps return the re-rendered view together with the error details.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/TransitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "Next stage", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "State token invalid or expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Region not found or inactive", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Workflow already finished or aborted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Step rejected; view and details returned", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Calendar refused the commit", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rba/receipts/{token}": {
            "get": {
                "tags": ["Workflow"],
                "summary": "Download the PDF recap of a committed batch",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF recap", "schema": {"type": "file"}},
                    "401": {"description": "Invalid link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Expired or removed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rba/regions/{regionId}/routes/eligible": {
            "get": {
                "tags": ["Routes"],
                "summary": "List routes eligible for an event distance",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "regionId", "type": "integer", "required": true},
                    {"in": "query", "name": "distance", "type": "number", "required": true, "description": "Calendared event distance in km"}
                ],
                "responses": {
                    "200": {"description": "Eligible routes", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Region not found or inactive", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Invalid distance", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "RegionSelection": {
            "type": "object",
            "properties": {
                "regionId": {"type": "integer"},
                "memberId": {"type": "integer"},
                "acpCode": {"type": "string"}
            }
        },
        "EventEdit": {
            "type": "object",
            "properties": {
                "eventId": {"type": "integer"},
                "routeId": {"type": "integer", "description": "0 unassigns; omit for no selection"},
                "distanceOption": {"type": "integer", "enum": [0, 1], "description": "0 keeps the calendared distance, 1 uses the route distance"}
            }
        },
        "TransitionRequest": {
            "type": "object",
            "required": ["state", "action"],
            "properties": {
                "state": {"type": "string", "description": "Token returned by the previous step"},
                "action": {"type": "string", "enum": ["submit", "back", "cancel"]},
                "cancelConfirmed": {"type": "boolean"},
                "region": {"$ref": "#/definitions/RegionSelection"},
                "rows": {"type": "array", "items": {"$ref": "#/definitions/EventEdit"}}
            }
        },
        "ErrorDetail": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "field": {"type": "string"},
                "row": {"type": "integer"},
                "message": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "array", "items": {"$ref": "#/definitions/ErrorDetail"}}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
