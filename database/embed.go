// Package database embed dosyası — migration SQL dosyalarını binary'ye gömer.
//
// //go:embed ile migration'lar derleme zamanında binary'nin içine girer:
// deploy edilen tek dosya yanında SQL dosyaları taşımak gerekmez.
// main.go ve testler aynı FS'i database.New'e geçirir — test şeması
// production şemasından asla sapmaz.
package database

import "embed"

// EmbeddedMigrations, migrations/ dizinindeki SQL dosyalarını içerir.
// Kullanım: fs.Sub(EmbeddedMigrations, "migrations") ile alt dizine eriş.
//
//go:embed migrations/*.sql
var EmbeddedMigrations embed.FS
