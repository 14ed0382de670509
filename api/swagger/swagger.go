package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Maktab API",
        "description": "Administration API for students, classes, attendance, holidays, books, education progress and reports",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Students", "description": "Student roster with class roll bands"},
        {"name": "Classes", "description": "Class management"},
        {"name": "Fields", "description": "Custom student fields"},
        {"name": "Attendance", "description": "Daily attendance sheets"},
        {"name": "Holidays", "description": "Holiday calendar"},
        {"name": "Books", "description": "Books per class"},
        {"name": "Education", "description": "Education progress per book"},
        {"name": "Reports", "description": "Reports and exports"},
        {"name": "Auth", "description": "Login and account"},
        {"name": "Users", "description": "Staff accounts"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "Database unavailable"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange credentials for an access token",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Token issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"},
                    "429": {"description": "Too many failed attempts"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current account",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "parameters": [
                    {"in": "query", "name": "search", "type": "string"},
                    {"in": "query", "name": "class_id", "type": "string"},
                    {"in": "query", "name": "active", "type": "boolean"},
                    {"in": "query", "name": "page", "type": "integer"},
                    {"in": "query", "name": "limit", "type": "integer"},
                    {"in": "query", "name": "sort", "type": "string"},
                    {"in": "query", "name": "order", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Students"],
                "summary": "Create student",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/Student"}}
                ],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Roll number taken"}}
            }
        },
        "/students/next-roll": {
            "get": {
                "tags": ["Students"],
                "summary": "Next free roll number in a class band",
                "parameters": [{"in": "query", "name": "class_id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/students/{id}": {
            "get": {"tags": ["Students"], "summary": "Get student", "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}},
            "put": {"tags": ["Students"], "summary": "Update student", "security": [{"BearerAuth": []}], "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Students"], "summary": "Deactivate or delete student", "security": [{"BearerAuth": []}], "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}, {"in": "query", "name": "hard", "type": "boolean"}], "responses": {"204": {"description": "Deleted"}}}
        },
        "/classes": {
            "get": {"tags": ["Classes"], "summary": "List classes", "parameters": [{"in": "query", "name": "active", "type": "boolean"}, {"in": "query", "name": "search", "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Classes"], "summary": "Create class", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}
        },
        "/fields": {
            "get": {"tags": ["Fields"], "summary": "List custom fields", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Fields"], "summary": "Create custom field", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}
        },
        "/attendance": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Attendance sheet for a date, unmarked students default to present",
                "parameters": [{"in": "query", "name": "date", "type": "string"}, {"in": "query", "name": "class_id", "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Attendance"],
                "summary": "Save the sheet for a date",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Saved"}, "409": {"description": "Date is a holiday"}}
            }
        },
        "/attendance/students/{id}": {
            "get": {"tags": ["Attendance"], "summary": "Attendance history of a student", "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}, {"in": "query", "name": "from", "type": "string"}, {"in": "query", "name": "to", "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/holidays": {
            "get": {"tags": ["Holidays"], "summary": "List holidays", "parameters": [{"in": "query", "name": "from", "type": "string"}, {"in": "query", "name": "to", "type": "string"}, {"in": "query", "name": "year", "type": "integer"}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Holidays"], "summary": "Create holiday", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}, "409": {"description": "Date already a holiday"}}}
        },
        "/holidays/check": {
            "get": {"tags": ["Holidays"], "summary": "Check whether a date is a holiday", "parameters": [{"in": "query", "name": "date", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/books": {
            "get": {"tags": ["Books"], "summary": "List books", "parameters": [{"in": "query", "name": "class_id", "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Books"], "summary": "Create book", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}
        },
        "/education": {
            "get": {"tags": ["Education"], "summary": "List progress entries", "parameters": [{"in": "query", "name": "class_id", "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Education"], "summary": "Save progress for a class and book", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Saved"}}}
        },
        "/dashboard": {
            "get": {"tags": ["Reports"], "summary": "Dashboard overview", "parameters": [{"in": "query", "name": "date", "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/reports/attendance": {
            "get": {"tags": ["Reports"], "summary": "Attendance report", "parameters": [{"in": "query", "name": "from", "type": "string"}, {"in": "query", "name": "to", "type": "string"}, {"in": "query", "name": "class_id", "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/reports/exports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue a CSV or PDF export",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/ReportRequest"}}],
                "responses": {"202": {"description": "Accepted"}}
            }
        },
        "/reports/exports/{id}": {
            "get": {"tags": ["Reports"], "summary": "Export status", "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/reports/download/{token}": {
            "get": {"tags": ["Reports"], "summary": "Download a finished export", "parameters": [{"in": "path", "name": "token", "type": "string", "required": true}], "responses": {"200": {"description": "File"}, "403": {"description": "Link expired"}}}
        },
        "/users": {
            "get": {"tags": ["Users"], "summary": "List accounts", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Users"], "summary": "Create account", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}
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
        "Student": {
            "type": "object",
            "required": ["name", "class_id"],
            "properties": {
                "name": {"type": "string"},
                "father_name": {"type": "string"},
                "mother_name": {"type": "string"},
                "mobile": {"type": "string"},
                "id_number": {"type": "string"},
                "district": {"type": "string"},
                "upazila": {"type": "string"},
                "address": {"type": "string"},
                "class_id": {"type": "string"},
                "roll_number": {"type": "integer"},
                "registration_date": {"type": "string", "format": "date"},
                "active": {"type": "boolean"},
                "custom_fields": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "ReportRequest": {
            "type": "object",
            "required": ["type", "format"],
            "properties": {
                "type": {"type": "string", "enum": ["attendance", "students", "education"]},
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "class_id": {"type": "string"},
                "from": {"type": "string", "format": "date"},
                "to": {"type": "string", "format": "date"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
