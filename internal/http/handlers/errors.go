// Package handlers defines the user-facing error messages returned across
// API endpoints. Centralizing them keeps wording stable for clients that
// match on the error string (the envelope carries no separate code field).
package handlers

const (
	msgInternal          = "Internal Server Error"
	msgSessionNotFound   = "Session not found"
	msgUserNotFound      = "User not found"
	msgNoAnswer          = "No answer provided"
	msgNoSessionID       = "No sessionId found"
	msgNoUserID          = "No userId provided"
	msgInvalidMood       = "Invalid mood value"
	msgInvalidAIResponse = "Invalid response format from AI"
	msgModelUnavailable  = "Assistant is unavailable, please try again"
	msgUsernameTaken     = "Username already taken"
	msgMissingSignup     = "Username and password are required"
)
