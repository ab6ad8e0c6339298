package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteCSVFile записывает заголовок и строки в CSV, создавая каталог при необходимости
func WriteCSVFile(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ошибка создания каталога %s: %w", filepath.Dir(path), err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ошибка создания файла %s: %w", path, err)
	}
	defer file.Close()

	if err := WriteCSV(file, header, rows); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// WriteCSV записывает заголовок и строки в w
func WriteCSV(w io.Writer, header []string, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("ошибка записи заголовка: %w", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("ошибка записи строк: %w", err)
	}
	return nil
}
