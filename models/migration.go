package models

import (
	"log"

	"github.com/rohtashsarraf/jewelbill_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Customer{},
		&RateSnapshot{},
		&Bill{}, &BillItem{}, &OldMetalExchange{},
		&Payment{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
