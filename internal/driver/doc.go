// Package driver holds the driver registry primitives shared by every
// playback subsystem.
//
// A playback frontend hosts interchangeable backends for each subsystem
// category (video, audio, input, camera, location, menu, ...). This package
// provides:
//   - Category: the fixed set of backend kinds, parsed from config labels
//   - Set: a typed set of categories used to scope lifecycle commands
//   - Ownership: whether a category owns its underlying resource or has it
//     borrowed by another category
//   - Registry and Enumerator: uniform, read-only enumeration of the backends
//     registered for each category
//   - Resolver: index lookup and previous/next cycling over an enumeration
//
// The backends themselves live elsewhere. This package never mutates a
// registry; it only reads.
//
// Usage:
//
//	enum := driver.NewEnumerator()
//	enum.Register(driver.CategoryVideo, driver.NewStaticRegistry(
//	    driver.Backend{Name: "gl", Handle: glDriver},
//	    driver.Backend{Name: "null", Handle: nullVideo},
//	))
//
//	resolver := driver.NewResolver(enum)
//	next, err := resolver.Next(driver.CategoryVideo, "gl") // "null"
package driver
