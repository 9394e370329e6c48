// Package prompts centralizes every prompt template sent to the
// language model. Templates are const strings with exported builder
// functions; nothing outside this package concatenates prompt text.
package prompts
