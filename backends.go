package main

import (
	// Import all provider modules to trigger their init() functions
	_ "github.com/Roguelazer/advsearch/pkg/providers/manticore"
	_ "github.com/Roguelazer/advsearch/pkg/providers/sqlite"
)
