package main

// General API documentation for swaggo. Regenerate docs/ with
// `swag init -g cmd/mnistd/docs.go -o docs`.
//
// @title           mnistd API
// @version         1.0
// @description     Handwritten digit classification served by one actor per region.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
