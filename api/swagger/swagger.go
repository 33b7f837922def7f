package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Room Usage Monitor API",
        "description": "Read-only view of the classroom usage classifier",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Status", "description": "Latest classification and parsed bookings"},
        {"name": "Ops", "description": "Liveness, readiness and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Ops"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Ops"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "A cycle has completed"},
                    "503": {"description": "No cycle has completed yet"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Ops"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/v1/status": {
            "get": {
                "tags": ["Status"],
                "summary": "Latest room status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/StatusEnvelope"}},
                    "404": {"description": "No report yet", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedule": {
            "get": {
                "tags": ["Status"],
                "summary": "Parsed bookings for a date",
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "format": "date", "description": "Defaults to today"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ScheduleEnvelope"}},
                    "400": {"description": "Invalid date", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Schedule not fetched yet", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "StatusReport": {
            "type": "object",
            "properties": {
                "status_text": {"type": "string"},
                "booking_status": {"type": "string"},
                "co2_value": {"type": "string"},
                "current_period": {"type": "string"},
                "last_updated": {"type": "string"}
            }
        },
        "ScheduleEntry": {
            "type": "object",
            "properties": {
                "period": {"type": "integer"},
                "label": {"type": "string"},
                "booking": {"type": "string"},
                "state": {"type": "string", "enum": ["reserved", "not_reserved", "unknown"]}
            }
        },
        "Schedule": {
            "type": "object",
            "properties": {
                "room": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "entries": {"type": "array", "items": {"$ref": "#/definitions/ScheduleEntry"}}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        },
        "StatusEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/StatusReport"},
                "meta": {"type": "object"}
            }
        },
        "ScheduleEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/Schedule"},
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
