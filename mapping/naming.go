/*
 * Copyright (C) 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you may not
 * use this file except in compliance with the License. You may obtain a copy of
 * the License at
 *
 *   http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
 * WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
 * License for the specific language governing permissions and limitations under
 * the License.
 */

package mapping

import (
	"strings"
	"unicode"
)

// NamingStrategy derives table, type, and column names from Go identifiers
// when no explicit name is given in the struct tag.
type NamingStrategy interface {
	TableName(typeName string) string
	UserTypeName(typeName string) string
	ColumnName(fieldName string) string
}

// SnakeCaseNamingStrategy is the default strategy: Go names become
// lower_snake_case, matching Cassandra's unquoted identifier rules.
type SnakeCaseNamingStrategy struct{}

func (SnakeCaseNamingStrategy) TableName(typeName string) string    { return toSnakeCase(typeName) }
func (SnakeCaseNamingStrategy) UserTypeName(typeName string) string { return toSnakeCase(typeName) }
func (SnakeCaseNamingStrategy) ColumnName(fieldName string) string  { return toSnakeCase(fieldName) }

func toSnakeCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			// start a new word unless this is the continuation of an
			// acronym, e.g. "UserID" -> "user_id", "HTTPCode" -> "http_code"
			if i > 0 && (!unicode.IsUpper(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
