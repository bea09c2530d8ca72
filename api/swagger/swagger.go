package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Room Allocation API",
        "description": "Scheduling conflict resolution and room allocation lifecycle.",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {
            "name": "Allocations",
            "description": "Room bookings of teaching schedules"
        },
        {
            "name": "TeachingSchedules",
            "description": "Professor to discipline offering assignments"
        }
    ],
    "paths": {
        "/allocations": {
            "get": {
                "tags": [
                    "Allocations"
                ],
                "summary": "List room allocations",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "room_number",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "room_type",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "professor_id",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "discipline",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "shift",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "term_year",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "term_half",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "kind",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "status",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "course",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "course_semester",
                        "in": "query",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid input",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            },
            "post": {
                "tags": [
                    "Allocations"
                ],
                "summary": "Book a room for a teaching schedule",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CreateAllocationRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid input",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/allocations/{roomNumber}/{roomType}/{professorId}/{discipline}/{shift}/{year}/{half}": {
            "delete": {
                "tags": [
                    "Allocations"
                ],
                "summary": "Remove an allocation",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "roomNumber",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    },
                    {
                        "name": "roomType",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "professorId",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    },
                    {
                        "name": "discipline",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "shift",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "year",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    },
                    {
                        "name": "half",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/allocations/{roomNumber}/{roomType}/{professorId}/{discipline}/{shift}/{year}/{half}/status": {
            "put": {
                "tags": [
                    "Allocations"
                ],
                "summary": "Change the status of an allocation",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "roomNumber",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    },
                    {
                        "name": "roomType",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "professorId",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    },
                    {
                        "name": "discipline",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "shift",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "year",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    },
                    {
                        "name": "half",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/AllocationStatusRequest"
                        }
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "400": {
                        "description": "Invalid input",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/allocations/{roomNumber}/{roomType}/{professorId}/{discipline}/{shift}/{year}/{half}/room": {
            "put": {
                "tags": [
                    "Allocations"
                ],
                "summary": "Move an allocation to another room",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "roomNumber",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    },
                    {
                        "name": "roomType",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "professorId",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    },
                    {
                        "name": "discipline",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "shift",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "year",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    },
                    {
                        "name": "half",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ChangeRoomRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid input",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/teaching-schedules": {
            "get": {
                "tags": [
                    "TeachingSchedules"
                ],
                "summary": "List teaching schedules",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "professor_id",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "term_year",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "term_half",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "course",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "shift",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "course_semester",
                        "in": "query",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid input",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            },
            "post": {
                "tags": [
                    "TeachingSchedules"
                ],
                "summary": "Assign a professor to a discipline offering",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CreateTeachingScheduleRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid input",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/teaching-schedules/copy": {
            "post": {
                "tags": [
                    "TeachingSchedules"
                ],
                "summary": "Copy every teaching schedule of a term into another term",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CopyTermRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid input",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/teaching-schedules/{professorId}/{discipline}/{shift}/{year}/{half}": {
            "put": {
                "tags": [
                    "TeachingSchedules"
                ],
                "summary": "Move a teaching schedule and its allocations to another slot",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "professorId",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    },
                    {
                        "name": "discipline",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "shift",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "year",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    },
                    {
                        "name": "half",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/RescheduleRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid input",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            },
            "delete": {
                "tags": [
                    "TeachingSchedules"
                ],
                "summary": "Remove a teaching schedule with its allocations",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "professorId",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    },
                    {
                        "name": "discipline",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "shift",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "year",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    },
                    {
                        "name": "half",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "CreateAllocationRequest": {
            "type": "object",
            "required": [
                "room_number",
                "room_type",
                "discipline_name",
                "discipline_shift",
                "term_year",
                "term_half"
            ],
            "properties": {
                "room_number": {
                    "type": "integer"
                },
                "room_type": {
                    "type": "string"
                },
                "professor_id": {
                    "type": "integer"
                },
                "discipline_name": {
                    "type": "string"
                },
                "discipline_shift": {
                    "type": "string"
                },
                "term_year": {
                    "type": "integer"
                },
                "term_half": {
                    "type": "integer",
                    "enum": [
                        1,
                        2
                    ]
                },
                "day_of_week": {
                    "type": "integer"
                },
                "start_time": {
                    "type": "string",
                    "example": "08:00"
                },
                "kind": {
                    "type": "string",
                    "enum": [
                        "recurring",
                        "one_off"
                    ]
                }
            }
        },
        "AllocationStatusRequest": {
            "type": "object",
            "required": [
                "status"
            ],
            "properties": {
                "status": {
                    "type": "string",
                    "enum": [
                        "pending",
                        "confirmed",
                        "cancelled"
                    ]
                }
            }
        },
        "ChangeRoomRequest": {
            "type": "object",
            "required": [
                "room_number",
                "room_type"
            ],
            "properties": {
                "room_number": {
                    "type": "integer"
                },
                "room_type": {
                    "type": "string"
                }
            }
        },
        "CreateTeachingScheduleRequest": {
            "type": "object",
            "required": [
                "professor_id",
                "discipline_name",
                "discipline_shift",
                "term_year",
                "term_half",
                "day_of_week",
                "start_time"
            ],
            "properties": {
                "professor_id": {
                    "type": "integer"
                },
                "discipline_name": {
                    "type": "string"
                },
                "discipline_shift": {
                    "type": "string"
                },
                "term_year": {
                    "type": "integer"
                },
                "term_half": {
                    "type": "integer",
                    "enum": [
                        1,
                        2
                    ]
                },
                "day_of_week": {
                    "type": "integer"
                },
                "start_time": {
                    "type": "string",
                    "example": "08:00"
                }
            }
        },
        "RescheduleRequest": {
            "type": "object",
            "required": [
                "day_of_week",
                "start_time"
            ],
            "properties": {
                "day_of_week": {
                    "type": "integer"
                },
                "start_time": {
                    "type": "string"
                }
            }
        },
        "Term": {
            "type": "object",
            "properties": {
                "term_year": {
                    "type": "integer"
                },
                "term_half": {
                    "type": "integer"
                }
            }
        },
        "CopyTermRequest": {
            "type": "object",
            "properties": {
                "source": {
                    "$ref": "#/definitions/Term"
                },
                "target": {
                    "$ref": "#/definitions/Term"
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object"
                },
                "error": {
                    "$ref": "#/definitions/APIError"
                },
                "meta": {
                    "type": "object"
                }
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
