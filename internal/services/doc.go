// Package services defines the error markers shared by the support desk
// components and the mapping from those markers to API status codes.
//
// Components tag failures with Wrap so the HTTP layer, the IPC server, and
// the logs classify them the same way without inspecting message text.
package services
