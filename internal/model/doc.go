package model

// Package model defines the data passed between the download controller, the
// analyzer, the workflow coordinator and the presentation layer: requests,
// progress events, analysis results, playlist entities and the error taxonomy.
// Values here are transient and scoped to a single operation.
