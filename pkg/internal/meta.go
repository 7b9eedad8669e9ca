package internal

var AppVersion = "1.0.0"
