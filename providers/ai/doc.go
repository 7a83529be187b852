// Package ai defines the provider-neutral request and response types shared
// by the model backends.
//
// A backend implements [Provider]. Requests carry text and inline image
// parts; responses expose the answer text, any decoded images and the raw
// response value in [ChatResponse.Raw], which the payload locator searches
// when the typed view misses the image.
package ai
