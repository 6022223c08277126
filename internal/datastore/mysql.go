package datastore

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tagwise/tagwise/internal/conf"
)

// mysqlDialector builds the MySQL connection. The returned description
// leaves out the password.
func mysqlDialector(settings conf.MySQLSettings) (gorm.Dialector, string) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		settings.Username, settings.Password,
		settings.Host, settings.Port,
		settings.Database)
	desc := fmt.Sprintf("%s@%s:%s/%s", settings.Username, settings.Host, settings.Port, settings.Database)
	return mysql.Open(dsn), desc
}
