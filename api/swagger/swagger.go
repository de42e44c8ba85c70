package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "QRMark API",
        "description": "QR based class attendance with anti-fraud admission gates",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Attendance", "description": "Student scan and check-in flow"},
        {"name": "Codes", "description": "Rotating session codes and QR images"},
        {"name": "Reports", "description": "Teacher-facing attendance reports"},
        {"name": "Unlock", "description": "Device binding release links"},
        {"name": "Authentication", "description": "Teacher login"}
    ],
    "paths": {
        "/scan": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Resolve a scanned QR link",
                "parameters": [
                    {"name": "class", "in": "query", "type": "string", "required": true},
                    {"name": "year", "in": "query", "type": "string", "required": true},
                    {"name": "subject", "in": "query", "type": "string", "required": true},
                    {"name": "code", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "One-shot check-in token issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Code is stale or unknown"},
                    "429": {"description": "Device is cooling down"}
                }
            }
        },
        "/attendance/checkin": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Submit attendance",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CheckinRequest"}}
                ],
                "responses": {
                    "201": {"description": "Attendance recorded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Malformed payload or coordinates"},
                    "403": {"description": "Geofence violation or foreign device"},
                    "404": {"description": "Unknown student"},
                    "409": {"description": "Already marked"},
                    "422": {"description": "Bad code or token"}
                }
            }
        },
        "/unlock/{token}": {
            "get": {
                "tags": ["Unlock"],
                "summary": "Redeem a device unlock link",
                "parameters": [
                    {"name": "token", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Device released"},
                    "401": {"description": "Invalid or expired unlock link"}
                }
            }
        },
        "/unlock-links": {
            "post": {
                "tags": ["Unlock"],
                "summary": "Issue a device unlock link",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"student_id": {"type": "string"}}}}
                ],
                "responses": {
                    "201": {"description": "Signed link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown student"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate teacher",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Access token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/codes": {
            "post": {
                "tags": ["Codes"],
                "summary": "Start a class session",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/IssueCodeRequest"}}
                ],
                "responses": {
                    "201": {"description": "Fresh session code", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["Codes"],
                "summary": "List recently issued codes",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/codes/current": {
            "get": {
                "tags": ["Codes"],
                "summary": "Get today's code for a session",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "class", "in": "query", "type": "string", "required": true},
                    {"name": "year", "in": "query", "type": "string", "required": true},
                    {"name": "subject", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No active code"}
                }
            }
        },
        "/codes/{id}/qr": {
            "get": {
                "tags": ["Codes"],
                "summary": "Get the QR image for a session code",
                "security": [{"BearerAuth": []}],
                "produces": ["image/png"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "PNG image"},
                    "404": {"description": "Unknown code"}
                }
            }
        },
        "/attendance": {
            "get": {
                "tags": ["Reports"],
                "summary": "List attendance records",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "class", "in": "query", "type": "string"},
                    {"name": "year", "in": "query", "type": "string"},
                    {"name": "subject", "in": "query", "type": "string"},
                    {"name": "student_id", "in": "query", "type": "string"},
                    {"name": "date", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/summary": {
            "get": {
                "tags": ["Reports"],
                "summary": "Marked-versus-roster counts for one session day",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "class", "in": "query", "type": "string", "required": true},
                    {"name": "year", "in": "query", "type": "string", "required": true},
                    {"name": "subject", "in": "query", "type": "string", "required": true},
                    {"name": "date", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/export": {
            "get": {
                "tags": ["Reports"],
                "summary": "Export attendance records",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/classes": {
            "get": {
                "tags": ["Reports"],
                "summary": "List known class names",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "IssueCodeRequest": {
            "type": "object",
            "required": ["class_name", "year", "subject"],
            "properties": {
                "class_name": {"type": "string"},
                "year": {"type": "string"},
                "subject": {"type": "string"},
                "anchor_lat": {"type": "string"},
                "anchor_lng": {"type": "string"}
            }
        },
        "CheckinRequest": {
            "type": "object",
            "required": ["student_id", "class_name", "year", "subject", "code", "token"],
            "properties": {
                "student_id": {"type": "string"},
                "class_name": {"type": "string"},
                "year": {"type": "string"},
                "subject": {"type": "string"},
                "code": {"type": "string"},
                "token": {"type": "string"},
                "student_lat": {"type": "string"},
                "student_lng": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"},
                "total_pages": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
