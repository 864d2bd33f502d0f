package handlers

import (
	"encoding/json"
	"net/http"
)

// OpenAPISpec returns the OpenAPI 3.0 specification for the Production Report API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Production Report Platform API",
			"description": "Daily plant production report pipeline: spreadsheet ingestion, calendar filtering, and summary metrics with an archive of processed uploads",
			"version":     "1.0.0",
			"contact": map[string]string{
				"name": "Production Platform Team",
			},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/reports": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Upload a daily production report",
					"description": "Accepts an .xlsx workbook, runs the normalization/filter/aggregation pipeline, and returns the derived summary metrics",
					"requestBody": map[string]interface{}{
						"required": true,
						"content": map[string]interface{}{
							"multipart/form-data": map[string]interface{}{
								"schema": map[string]interface{}{
									"type": "object",
									"properties": map[string]interface{}{
										"file": map[string]string{
											"type":   "string",
											"format": "binary",
										},
									},
									"required": []string{"file"},
								},
							},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Pipeline result; no_data is true when the calendar filter removed every record",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]string{"$ref": "#/components/schemas/ReportResult"},
								},
							},
						},
						"400": map[string]interface{}{
							"description": "Missing required column or unreadable workbook",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]string{"$ref": "#/components/schemas/ErrorResponse"},
								},
							},
						},
					},
				},
				"get": map[string]interface{}{
					"summary":     "List archived upload reports",
					"description": "Retrieve processed upload snapshots with filtering and pagination",
					"parameters": []map[string]interface{}{
						{
							"name":        "top_plant",
							"in":          "query",
							"description": "Filter by the top producing plant",
							"required":    false,
							"schema":      map[string]string{"type": "string"},
						},
						{
							"name":        "from",
							"in":          "query",
							"description": "Filter by earliest upload date (YYYY-MM-DD)",
							"required":    false,
							"schema":      map[string]string{"type": "string", "format": "date"},
						},
						{
							"name":        "to",
							"in":          "query",
							"description": "Filter by latest upload date (YYYY-MM-DD)",
							"required":    false,
							"schema":      map[string]string{"type": "string", "format": "date"},
						},
						{
							"name":     "page",
							"in":       "query",
							"required": false,
							"schema":   map[string]interface{}{"type": "integer", "default": 1},
						},
						{
							"name":     "limit",
							"in":       "query",
							"required": false,
							"schema":   map[string]interface{}{"type": "integer", "default": 50, "maximum": 500},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Paginated list of archived upload reports",
						},
						"503": map[string]interface{}{
							"description": "Report archive not configured",
						},
					},
				},
			},
			"/api/reports/latest": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get the most recent pipeline result",
					"description": "Returns the in-memory result of the last processed upload for this server session",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Latest pipeline result",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]string{"$ref": "#/components/schemas/ReportResult"},
								},
							},
						},
						"404": map[string]interface{}{
							"description": "No report uploaded yet",
						},
					},
				},
			},
			"/api/reports/{id}": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Get one archived upload report",
					"parameters": []map[string]interface{}{
						{
							"name":     "id",
							"in":       "path",
							"required": true,
							"schema":   map[string]string{"type": "integer"},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Archived report with per-plant rows",
						},
						"404": map[string]interface{}{
							"description": "Report not found",
						},
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Health check",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Service is healthy",
						},
					},
				},
			},
		},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"ReportResult": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"file_name":         map[string]string{"type": "string"},
						"uploaded_at":       map[string]string{"type": "string", "format": "date-time"},
						"no_data":           map[string]string{"type": "boolean"},
						"rows_parsed":       map[string]string{"type": "integer"},
						"rows_invalid_date": map[string]string{"type": "integer"},
						"rows_excluded":     map[string]string{"type": "integer"},
						"rows_aggregated":   map[string]string{"type": "integer"},
						"records": map[string]interface{}{
							"type":  "array",
							"items": map[string]string{"$ref": "#/components/schemas/ProductionRecord"},
						},
						"summary": map[string]string{"$ref": "#/components/schemas/SummaryMetrics"},
					},
				},
				"ProductionRecord": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"plant_name":              map[string]string{"type": "string"},
						"date":                    map[string]string{"type": "string", "format": "date-time"},
						"production_for_day":      map[string]string{"type": "number"},
						"accumulative_production": map[string]string{"type": "number"},
					},
				},
				"SummaryMetrics": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"total_production": map[string]string{"type": "number"},
						"top_plant_name":   map[string]string{"type": "string"},
						"top_plant_value":  map[string]string{"type": "number"},
						"per_plant_series": map[string]interface{}{
							"type":  "array",
							"items": map[string]string{"$ref": "#/components/schemas/PlantSeries"},
						},
						"accumulative_by_plant": map[string]interface{}{
							"type":  "array",
							"items": map[string]string{"$ref": "#/components/schemas/PlantSeries"},
						},
					},
				},
				"PlantSeries": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"plant_name": map[string]string{"type": "string"},
						"values": map[string]interface{}{
							"type":  "array",
							"items": map[string]string{"type": "number"},
						},
					},
				},
				"ErrorResponse": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"error":   map[string]string{"type": "string"},
						"message": map[string]string{"type": "string"},
						"code":    map[string]string{"type": "integer"},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
