package main

// General API documentation for swaggo. Run `make swagger-gen` to regenerate docs.
//
// @title           predictd API
// @version         1.0
// @description     HTTP API for next-word prediction over a local language model.
//
// @contact.name   predictd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
