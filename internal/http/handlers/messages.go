package handlers

import (
	"fmt"
	"net/http"

	"colorizer/internal/middleware"
)

type messageKey int

const (
	msgNoImage messageKey = iota
	msgNoFile
	msgOnlyImages
	msgMustBeImage
	msgTooLarge
	msgUnsupportedFormat
	msgFileValid
	msgMalformedUpload
	msgInsufficientCredits
	msgProcessed
	msgProcessFailed
	msgInvalidAmount
	msgTopUp
	msgNotFound
	msgMethodNotAllowed
	msgInternal
)

var catalog = map[string]map[messageKey]string{
	"en": {
		msgNoImage:             "No image was provided",
		msgNoFile:              "No file was provided",
		msgOnlyImages:          "Only image files are allowed",
		msgMustBeImage:         "The file must be an image",
		msgTooLarge:            "The file is too large (maximum %dMB)",
		msgUnsupportedFormat:   "Unsupported image format. Use JPEG, PNG or SVG",
		msgFileValid:           "Valid file",
		msgMalformedUpload:     "Malformed upload",
		msgInsufficientCredits: "Insufficient credits. You need at least %d credits.",
		msgProcessed:           "Image processed successfully with %s",
		msgProcessFailed:       "Failed to process image",
		msgInvalidAmount:       "amount must be a positive integer",
		msgTopUp:               "Credits added",
		msgNotFound:            "Route not found",
		msgMethodNotAllowed:    "Method not allowed",
		msgInternal:            "Internal server error",
	},
	"es": {
		msgNoImage:             "No se proporcionó ninguna imagen",
		msgNoFile:              "No se proporcionó ningún archivo",
		msgOnlyImages:          "Solo se permiten archivos de imagen",
		msgMustBeImage:         "El archivo debe ser una imagen",
		msgTooLarge:            "El archivo es demasiado grande (máximo %dMB)",
		msgUnsupportedFormat:   "Formato de imagen no soportado. Use JPEG, PNG o SVG",
		msgFileValid:           "Archivo válido",
		msgMalformedUpload:     "Carga de archivo mal formada",
		msgInsufficientCredits: "Créditos insuficientes. Necesitas al menos %d créditos.",
		msgProcessed:           "Imagen procesada exitosamente con %s",
		msgProcessFailed:       "No se pudo procesar la imagen",
		msgInvalidAmount:       "amount debe ser un entero positivo",
		msgTopUp:               "Créditos añadidos",
		msgNotFound:            "Ruta no encontrada",
		msgMethodNotAllowed:    "Método no permitido",
		msgInternal:            "Error interno del servidor",
	},
}

// text renders key in the request locale, falling back to English.
func text(r *http.Request, key messageKey, args ...any) string {
	table, ok := catalog[middleware.LocaleFromContext(r.Context())]
	if !ok {
		table = catalog["en"]
	}
	format, ok := table[key]
	if !ok {
		format = catalog["en"][key]
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
