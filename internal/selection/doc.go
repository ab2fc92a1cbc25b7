// Package selection keeps the selected backend name of each driver
// category.
//
// Names come from three layers: a row in driver_selections (written when a
// user cycles a category), the drivers section of config.yaml, and finally
// the "null" sentinel. The Store caches the persisted rows so the lifecycle
// coordinator can read them without I/O during INIT_PRE.
//
// Cycling with Next and Previous never wraps. A failed cycle keeps the
// current name and returns the resolver's error.
package selection
