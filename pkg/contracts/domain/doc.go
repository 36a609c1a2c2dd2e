// Package domain contains the BanVic data model shared by the loader, the
// reporting pipeline and the transport layer.
//
// Money values use shopspring/decimal and calendar days use civil.Date, so
// reports round and compare exactly and never depend on a time zone.
package domain
