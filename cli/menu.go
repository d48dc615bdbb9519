package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kjk/inventory/inventory"
	"github.com/kjk/inventory/item"
	"github.com/kjk/inventory/log"
)

const menuText = `Inventory Menu:
1. List all items
2. Add new item
3. Search by ID
4. Update quantity
5. Delete item
Enter choice (1-5, 6 to exit): `

// menu runs interactive commands against a manager.
// Input is read line by line. A line that doesn't parse is discarded.
type menu struct {
	m   *inventory.Manager
	in  *bufio.Reader
	out io.Writer
	eof bool
}

func (mn *menu) printf(format string, args ...any) {
	fmt.Fprintf(mn.out, format, args...)
}

// readLine returns the next line without the line ending.
// ok is false at end of input.
func (mn *menu) readLine() (string, bool) {
	if mn.eof {
		return "", false
	}
	s, err := mn.in.ReadString('\n')
	if err != nil {
		mn.eof = true
		if s == "" {
			return "", false
		}
	}
	return item.TrimName(s), true
}

func (mn *menu) readInt() (int32, bool, error) {
	s, ok := mn.readLine()
	if !ok {
		return 0, false, io.EOF
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, false, nil
	}
	return int32(n), true, nil
}

func (mn *menu) readFloat() (float32, bool, error) {
	s, ok := mn.readLine()
	if !ok {
		return 0, false, io.EOF
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil {
		return 0, false, nil
	}
	return float32(f), true, nil
}

// RunMenu shows the menu until the user picks exit or input ends.
// On exit the items are saved and the manager is closed.
// Returns nil even if the final save fails.
func RunMenu(m *inventory.Manager, in io.Reader, out io.Writer) error {
	mn := &menu{
		m:   m,
		in:  bufio.NewReader(in),
		out: out,
	}
	for {
		mn.printf("%s", menuText)
		choice, ok, err := mn.readInt()
		if err != nil {
			// end of input is the same as exit
			mn.printf("\n")
			return mn.exit()
		}
		if !ok {
			mn.printf("Invalid input. Please enter a number between 1 and 6.\n")
			continue
		}
		switch choice {
		case 1:
			mn.list()
		case 2:
			mn.add()
		case 3:
			mn.search()
		case 4:
			mn.updateQuantity()
		case 5:
			mn.delete()
		case 6:
			return mn.exit()
		default:
			mn.printf("Invalid choice. Please enter a number between 1 and 6.\n")
		}
	}
}

// exit saves and closes the manager. A failed save is reported and logged
// but doesn't fail the exit.
func (mn *menu) exit() error {
	if err := mn.m.Close(); err != nil {
		mn.printf("Error saving items to file.\n")
		log.Errorf("saving '%s' on exit failed: %s", mn.m.Path(), err)
	}
	mn.printf("Exiting program.\n")
	return nil
}

func (mn *menu) list() {
	items := mn.m.List()
	if len(items) == 0 {
		mn.printf("No items to display.\n")
		return
	}
	for _, it := range items {
		it.Format(mn.out)
	}
}

func (mn *menu) add() {
	var it item.Item
	var ok bool
	var err error

	mn.printf("Enter new item details:\n")
	mn.printf("ID: ")
	it.ID, ok, err = mn.readInt()
	if err != nil {
		return
	}
	if !ok || it.ID <= 0 {
		mn.printf("Invalid ID. Please enter a positive integer.\n")
		return
	}

	mn.printf("Name: ")
	name, ok := mn.readLine()
	if !ok {
		return
	}
	if name == "" {
		mn.printf("Name cannot be empty. Please enter a valid name.\n")
		return
	}
	if len(name) > item.MaxNameLen {
		mn.printf("Name is too long. Please enter at most %d characters.\n", item.MaxNameLen)
		return
	}
	it.Name = name

	mn.printf("Quantity: ")
	it.Quantity, ok, err = mn.readInt()
	if err != nil {
		return
	}
	if !ok || it.Quantity <= 0 {
		mn.printf("Invalid quantity. Please enter a positive integer.\n")
		return
	}

	mn.printf("Price: ")
	it.Price, ok, err = mn.readFloat()
	if err != nil {
		return
	}
	if !ok || !(it.Price > 0) {
		mn.printf("Invalid price. Please enter a positive value.\n")
		return
	}

	mn.printf("Category (0: Electronics, 1: Clothing, 2: Food, 3: Other): ")
	cat, ok, err := mn.readInt()
	if err != nil {
		return
	}
	if !ok {
		cat = int32(item.Other)
	}
	it.Category = item.CategoryFromInt(int(cat))

	err = mn.m.Add(it)
	var perr *inventory.PersistError
	switch {
	case err == nil:
		mn.printf("Item added successfully.\n")
	case errors.As(err, &perr):
		mn.printf("Error saving items to file.\n")
	default:
		mn.printf("Invalid item: %s\n", err)
	}
}

// readID prompts for an id. Returns false if there's no valid id.
func (mn *menu) readID(prompt string) (int32, bool) {
	mn.printf("%s", prompt)
	id, ok, err := mn.readInt()
	if err != nil {
		return 0, false
	}
	if !ok {
		mn.printf("Invalid input. Please enter a valid ID.\n")
		return 0, false
	}
	return id, true
}

func (mn *menu) search() {
	id, ok := mn.readID("Enter item ID to search: ")
	if !ok {
		return
	}
	it, err := mn.m.Search(id)
	if err != nil {
		mn.printf("Item with ID %d not found.\n", id)
		return
	}
	mn.printf("Item found:\n")
	it.Format(mn.out)
}

func (mn *menu) updateQuantity() {
	id, ok := mn.readID("Enter item ID to update quantity: ")
	if !ok {
		return
	}
	if _, err := mn.m.Search(id); err != nil {
		mn.printf("No Item with ID %d exists.\n", id)
		return
	}
	mn.printf("Enter new quantity for item ID %d: ", id)
	qty, ok, err := mn.readInt()
	if err != nil {
		return
	}
	if !ok {
		mn.printf("Invalid input. Please enter a valid quantity.\n")
		return
	}
	if err = mn.m.UpdateQuantity(id, qty); err != nil {
		mn.printf("Error saving items to file.\n")
		return
	}
	mn.printf("Quantity updated successfully.\n")
}

func (mn *menu) delete() {
	id, ok := mn.readID("Enter item ID to delete: ")
	if !ok {
		return
	}
	err := mn.m.Delete(id)
	if errors.Is(err, inventory.ErrNotFound) {
		mn.printf("No Item with ID %d exists.\n", id)
		return
	}
	if err != nil {
		mn.printf("Error saving after deleting.\n")
		return
	}
	mn.printf("Item with ID %d deleted successfully.\n", id)
}
