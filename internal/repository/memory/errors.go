package memory

import "fmt"

func errForeignKey(column string) error {
	return fmt.Errorf("foreign key violation on %s", column)
}
