// Package transfer moves a firmware image onto a device's storage.
//
// A Coordinator answers whether the destination file already exists and
// whether there is room for it, deletes files on request, uploads the image
// over SCP and compares the device's MD5 digest with the local one. All
// queries are pure: running them twice against an unchanged file system
// gives the same answer.
package transfer
