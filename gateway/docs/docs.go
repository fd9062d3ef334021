// Package docs registers the Swagger document served under /swagger.
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
        "/orders": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Place an order",
                "parameters": [
                    {"type": "string", "description": "session id", "name": "X-Session-ID", "in": "header"},
                    {"type": "string", "description": "authenticated user id", "name": "X-User-ID", "in": "header"},
                    {"description": "checkout", "name": "order", "in": "body", "required": true, "schema": {"$ref": "#/definitions/order.PlaceOrderInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/gateway.orderResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/gateway.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/gateway.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/gateway.errorResponse"}},
                    "410": {"description": "Gone", "schema": {"$ref": "#/definitions/gateway.errorResponse"}}
                }
            }
        },
        "/orders/me": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "List the caller's orders, newest first",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/gateway.orderResponse"}}}
                }
            }
        },
        "/orders/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Get one order",
                "parameters": [
                    {"type": "string", "description": "order id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/gateway.orderResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/gateway.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/gateway.errorResponse"}}
                }
            }
        },
        "/admin/orders": {
            "get": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "List all orders",
                "parameters": [
                    {"type": "string", "description": "PENDING, SHIPPED, COMPLETED or CANCELLED", "name": "status", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/gateway.orderResponse"}}}
                }
            }
        },
        "/admin/orders/{id}/status": {
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Move an order to a new status",
                "parameters": [
                    {"type": "string", "description": "order id", "name": "id", "in": "path", "required": true},
                    {"description": "target status", "name": "status", "in": "body", "required": true, "schema": {"$ref": "#/definitions/gateway.statusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/gateway.orderResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/gateway.errorResponse"}}
                }
            }
        },
        "/admin/orders/{id}/shipping": {
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Edit the shipping details of an open order",
                "parameters": [
                    {"type": "string", "description": "order id", "name": "id", "in": "path", "required": true},
                    {"description": "shipping details", "name": "shipping", "in": "body", "required": true, "schema": {"$ref": "#/definitions/order.Customer"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/gateway.orderResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/gateway.errorResponse"}}
                }
            }
        },
        "/admin/products/{id}/stock": {
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Add to or take from a product's stock",
                "parameters": [
                    {"type": "integer", "description": "product id", "name": "id", "in": "path", "required": true},
                    {"description": "signed stock change", "name": "delta", "in": "body", "required": true, "schema": {"$ref": "#/definitions/gateway.stockRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Product"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/gateway.errorResponse"}}
                }
            }
        },
        "/admin/audit/{entityId}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Audit trail of one entity, newest first",
                "parameters": [
                    {"type": "string", "description": "e.g. order:<id> or product:<id>", "name": "entityId", "in": "path", "required": true},
                    {"type": "integer", "description": "at most this many events, defaults to 50", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/audit.Event"}}}
                }
            }
        },
        "/products/{id}/availability": {
            "get": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Check whether a quantity of a product is in stock",
                "parameters": [
                    {"type": "integer", "description": "product id", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "quantity, defaults to 1", "name": "qty", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/inventory.Availability"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/gateway.errorResponse"}},
                    "410": {"description": "Gone", "schema": {"$ref": "#/definitions/gateway.errorResponse"}}
                }
            }
        },
        "/cart": {
            "get": {
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Show the caller's cart",
                "parameters": [
                    {"type": "string", "description": "session id, required when anonymous", "name": "X-Session-ID", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/gateway.cartResponse"}}
                }
            },
            "delete": {
                "tags": ["cart"],
                "summary": "Empty the cart",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/cart/lines": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Add a product to the cart",
                "parameters": [
                    {"description": "product and quantity", "name": "line", "in": "body", "required": true, "schema": {"$ref": "#/definitions/gateway.addLineRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/gateway.cartResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/gateway.errorResponse"}},
                    "410": {"description": "Gone", "schema": {"$ref": "#/definitions/gateway.errorResponse"}}
                }
            }
        },
        "/cart/lines/{lineId}": {
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Set the quantity of a line; zero or less removes it",
                "parameters": [
                    {"type": "string", "description": "line id", "name": "lineId", "in": "path", "required": true},
                    {"description": "new quantity", "name": "quantity", "in": "body", "required": true, "schema": {"$ref": "#/definitions/gateway.quantityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/gateway.cartResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/gateway.errorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Remove a line",
                "parameters": [
                    {"type": "string", "description": "line id", "name": "lineId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/gateway.cartResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/gateway.errorResponse"}}
                }
            }
        },
        "/session/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["session"],
                "summary": "Merge the session cart into the account cart after login",
                "parameters": [
                    {"type": "string", "description": "session id the visitor shopped under", "name": "X-Session-ID", "in": "header", "required": true},
                    {"type": "string", "description": "user that just logged in", "name": "X-User-ID", "in": "header", "required": true},
                    {"description": "login event", "name": "login", "in": "body", "schema": {"$ref": "#/definitions/gateway.loginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/gateway.cartResponse"}}
                }
            }
        },
        "/session/logout": {
            "post": {
                "tags": ["session"],
                "summary": "Drop the session cart",
                "responses": {"204": {"description": "No Content"}}
            }
        }
    },
    "definitions": {
        "gateway.errorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "gateway.statusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {"status": {"type": "string"}}
        },
        "gateway.stockRequest": {
            "type": "object",
            "properties": {"delta": {"type": "integer"}}
        },
        "gateway.addLineRequest": {
            "type": "object",
            "required": ["product_id"],
            "properties": {
                "product_id": {"type": "integer"},
                "quantity": {"type": "integer"}
            }
        },
        "gateway.quantityRequest": {
            "type": "object",
            "properties": {"quantity": {"type": "integer"}}
        },
        "gateway.loginRequest": {
            "type": "object",
            "properties": {"login_event_id": {"type": "string"}}
        },
        "gateway.cartResponse": {
            "type": "object",
            "properties": {
                "lines": {"type": "array", "items": {"$ref": "#/definitions/models.CartLine"}},
                "total": {"type": "string"},
                "currency": {"type": "string"},
                "total_display": {"type": "string"},
                "merged": {"type": "integer"},
                "failed": {"type": "array", "items": {"$ref": "#/definitions/cart.LineFailure"}},
                "replayed": {"type": "boolean"}
            }
        },
        "gateway.orderResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "user_id": {"type": "string"},
                "full_name": {"type": "string"},
                "phone": {"type": "string"},
                "address": {"type": "string"},
                "payment_method": {"type": "string"},
                "note": {"type": "string"},
                "total_amount": {"type": "string"},
                "status": {"type": "string"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/models.OrderItem"}},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"},
                "currency": {"type": "string"},
                "total_display": {"type": "string"}
            }
        },
        "order.Customer": {
            "type": "object",
            "required": ["full_name", "phone", "address"],
            "properties": {
                "full_name": {"type": "string"},
                "phone": {"type": "string"},
                "address": {"type": "string"}
            }
        },
        "order.LineInput": {
            "type": "object",
            "required": ["product_id", "quantity", "price"],
            "properties": {
                "product_id": {"type": "integer"},
                "quantity": {"type": "integer"},
                "price": {"type": "string"}
            }
        },
        "order.PlaceOrderInput": {
            "type": "object",
            "required": ["full_name", "phone", "address", "lines"],
            "properties": {
                "full_name": {"type": "string"},
                "phone": {"type": "string"},
                "address": {"type": "string"},
                "payment_method": {"type": "string"},
                "note": {"type": "string"},
                "lines": {"type": "array", "items": {"$ref": "#/definitions/order.LineInput"}}
            }
        },
        "models.OrderItem": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "order_id": {"type": "string"},
                "product_id": {"type": "integer"},
                "product_name": {"type": "string"},
                "quantity": {"type": "integer"},
                "price_at_purchase": {"type": "string"}
            }
        },
        "models.CartLine": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "product_id": {"type": "integer"},
                "quantity": {"type": "integer"},
                "product_name": {"type": "string"},
                "price": {"type": "string"},
                "unavailable": {"type": "boolean"}
            }
        },
        "models.Product": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "price": {"type": "string"},
                "stock": {"type": "integer"}
            }
        },
        "cart.LineFailure": {
            "type": "object",
            "properties": {
                "product_id": {"type": "integer"},
                "quantity": {"type": "integer"},
                "reason": {"type": "string"}
            }
        },
        "inventory.Availability": {
            "type": "object",
            "properties": {
                "product_id": {"type": "integer"},
                "requested": {"type": "integer"},
                "available": {"type": "integer"},
                "ok": {"type": "boolean"}
            }
        },
        "audit.Event": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "action": {"type": "string"},
                "entity_id": {"type": "string"},
                "actor_id": {"type": "string"},
                "data": {"type": "object"},
                "created_at": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Storefront API",
	Description:      "Orders, carts and stock of the storefront.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
