// Package api is the typed HTTP client for the marketplace REST endpoints.
//
// All requests carry "Authorization: Bearer <token>". Non-2xx responses
// with a JSON body of the form {"error": "message"} are returned as *Error;
// transport failures are returned as *Error with Code ErrCodeTransport.
package api
