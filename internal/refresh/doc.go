// Package refresh keeps the newest of several overlapping loads.
//
// A page that reloads a collection whenever the user navigates can have two
// loads in flight at once. Each load is tagged with a sequence number from a
// Clock when it starts; a result is applied only if no later-started load has
// been applied already, so a slow early load never overwrites a fast late one.
package refresh
