package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           peerd API
// @version         1.0
// @description     HTTP API for local LLM inference, chat storage and WebRTC signaling.
//
// @contact.name   peerd maintainers
// @contact.url    https://github.com/your-org/peerd
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
