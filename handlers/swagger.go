package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger serves a Swagger UI page and the OpenAPI document for the API.
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>qoverflow API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "qoverflow", "version": "v1" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } },
    "schemas": {
      "Vote": { "type": "object", "required": ["operation", "target"], "properties": {
        "operation": { "type": "string", "enum": ["increment", "decrement"] },
        "target": { "type": "string", "enum": ["upvotes", "downvotes"] } } },
      "Text": { "type": "object", "required": ["text"], "properties": { "text": { "type": "string" } } }
    }
  },
  "paths": {
    "/api/v1/users": { "post": { "summary": "Register", "responses": { "201": { "description": "created" }, "409": { "description": "username or email taken" } } } },
    "/api/v1/users/{username}": { "get": { "summary": "User profile", "responses": { "200": { "description": "user" }, "404": { "description": "no such user" } } } },
    "/api/v1/auth/login": { "post": { "summary": "Exchange username and password for an access token", "responses": { "200": { "description": "token issued" }, "401": { "description": "bad credentials" } } } },
    "/api/v1/auth/logout": { "post": { "summary": "Revoke the presented access token", "security": [{ "bearer": [] }], "responses": { "204": { "description": "revoked" } } } },
    "/api/v1/questions": {
      "get": { "summary": "Search questions", "parameters": [
        { "name": "after", "in": "query", "schema": { "type": "string" } },
        { "name": "sort", "in": "query", "schema": { "type": "string", "enum": ["u", "uvc", "uvac"] } },
        { "name": "match", "in": "query", "description": "JSON object", "schema": { "type": "string" } },
        { "name": "regexMatch", "in": "query", "description": "JSON object", "schema": { "type": "string" } } ],
        "responses": { "200": { "description": "questions" }, "400": { "description": "invalid match" } } },
      "post": { "summary": "Ask a question", "security": [{ "bearer": [] }], "responses": { "201": { "description": "created" } } }
    },
    "/api/v1/questions/{qid}": {
      "get": { "summary": "Get a question", "responses": { "200": { "description": "question" }, "404": { "description": "not found" } } },
      "patch": { "summary": "Edit title, text or status", "security": [{ "bearer": [] }], "responses": { "204": { "description": "updated" } } },
      "delete": { "summary": "Delete a question and everything under it", "security": [{ "bearer": [] }], "responses": { "204": { "description": "deleted" } } }
    },
    "/api/v1/questions/{qid}/view": { "post": { "summary": "Count a view", "responses": { "200": { "description": "counted or deduplicated" } } } },
    "/api/v1/questions/{qid}/vote": { "post": { "summary": "Vote on a question", "security": [{ "bearer": [] }], "responses": { "204": { "description": "applied" }, "400": { "description": "illegal transition" }, "403": { "description": "self vote" } } } },
    "/api/v1/questions/{qid}/answers": {
      "get": { "summary": "List answers", "responses": { "200": { "description": "answers" } } },
      "post": { "summary": "Answer a question", "security": [{ "bearer": [] }], "responses": { "201": { "description": "created" }, "403": { "description": "already answered or question not open" } } }
    },
    "/api/v1/questions/{qid}/answers/{aid}": {
      "patch": { "summary": "Edit an answer", "security": [{ "bearer": [] }], "responses": { "204": { "description": "updated" } } },
      "delete": { "summary": "Remove an answer", "security": [{ "bearer": [] }], "responses": { "204": { "description": "removed" } } }
    },
    "/api/v1/questions/{qid}/answers/{aid}/accept": { "post": { "summary": "Accept an answer", "security": [{ "bearer": [] }], "responses": { "204": { "description": "accepted" } } } },
    "/api/v1/questions/{qid}/answers/{aid}/vote": { "post": { "summary": "Vote on an answer", "security": [{ "bearer": [] }], "responses": { "204": { "description": "applied" } } } },
    "/api/v1/questions/{qid}/comments": {
      "get": { "summary": "List question comments", "responses": { "200": { "description": "comments" } } },
      "post": { "summary": "Comment on a question", "security": [{ "bearer": [] }], "responses": { "201": { "description": "created" } } }
    },
    "/api/v1/questions/{qid}/comments/{cid}": { "delete": { "summary": "Remove a question comment", "security": [{ "bearer": [] }], "responses": { "204": { "description": "removed" } } } },
    "/api/v1/questions/{qid}/comments/{cid}/vote": { "post": { "summary": "Vote on a question comment", "security": [{ "bearer": [] }], "responses": { "204": { "description": "applied" } } } },
    "/api/v1/questions/{qid}/answers/{aid}/comments": {
      "get": { "summary": "List answer comments", "responses": { "200": { "description": "comments" } } },
      "post": { "summary": "Comment on an answer", "security": [{ "bearer": [] }], "responses": { "201": { "description": "created" } } }
    },
    "/api/v1/questions/{qid}/answers/{aid}/comments/{cid}": { "delete": { "summary": "Remove an answer comment", "security": [{ "bearer": [] }], "responses": { "204": { "description": "removed" } } } },
    "/api/v1/questions/{qid}/answers/{aid}/comments/{cid}/vote": { "post": { "summary": "Vote on an answer comment", "security": [{ "bearer": [] }], "responses": { "204": { "description": "applied" } } } },
    "/api/v1/mail": {
      "get": { "summary": "Inbox, newest first", "security": [{ "bearer": [] }], "responses": { "200": { "description": "messages" } } },
      "post": { "summary": "Send mail", "security": [{ "bearer": [] }], "responses": { "201": { "description": "sent" } } }
    },
    "/api/v1/mail/{id}": { "delete": { "summary": "Delete received mail", "security": [{ "bearer": [] }], "responses": { "204": { "description": "deleted" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
