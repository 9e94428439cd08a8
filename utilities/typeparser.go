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

package utilities

import (
	"fmt"
	"strings"

	"github.com/cassandra-ecosystem/cql-object-mapper/global/types"
)

// UdtResolver resolves a bare type name that is not a built-in CQL type,
// typically against the user-defined types of a keyspace.
type UdtResolver func(name string) (types.CqlDataType, bool)

var scalarsByName = map[string]types.CqlDataType{
	"ascii":     types.TypeAscii,
	"bigint":    types.TypeBigint,
	"blob":      types.TypeBlob,
	"boolean":   types.TypeBoolean,
	"counter":   types.TypeCounter,
	"date":      types.TypeDate,
	"decimal":   types.TypeDecimal,
	"double":    types.TypeDouble,
	"float":     types.TypeFloat,
	"inet":      types.TypeInet,
	"int":       types.TypeInt,
	"smallint":  types.TypeSmallint,
	"text":      types.TypeText,
	"time":      types.TypeTime,
	"timestamp": types.TypeTimestamp,
	"timeuuid":  types.TypeTimeuuid,
	"tinyint":   types.TypeTinyint,
	"uuid":      types.TypeUuid,
	"varchar":   types.TypeVarchar,
	"varint":    types.TypeVarint,
}

func ParseCqlTypeOrDie(typeStr string) types.CqlDataType {
	t, err := ParseCqlTypeString(typeStr)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseCqlTypeString converts the string representation of a Cassandra data
// type (e.g. "text", "map<text, frozen<set<int>>>") into a CqlDataType.
// Unknown bare names are an error; use ParseCqlTypeStringWithResolver when
// the string may reference user-defined types.
func ParseCqlTypeString(input string) (types.CqlDataType, error) {
	return ParseCqlTypeStringWithResolver(input, nil)
}

func ParseCqlTypeStringWithResolver(input string, resolver UdtResolver) (types.CqlDataType, error) {
	p := &typeParser{input: strings.ToLower(strings.ReplaceAll(input, " ", "")), resolver: resolver}
	t, err := p.parse()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("trailing characters %q in type '%s'", p.input[p.pos:], input)
	}
	return t, nil
}

type typeParser struct {
	input    string
	pos      int
	resolver UdtResolver
}

func (p *typeParser) parse() (types.CqlDataType, error) {
	name := p.readName()
	if name == "" {
		return nil, fmt.Errorf("expected a type name at offset %d in '%s'", p.pos, p.input)
	}

	switch name {
	case "frozen":
		inner, err := p.readTypeArgs(name, 1)
		if err != nil {
			return nil, err
		}
		if !inner[0].IsCollection() && inner[0].Code() != types.UDT && inner[0].Code() != types.TUPLE {
			return nil, fmt.Errorf("frozen must wrap a collection, tuple, or UDT: '%s'", p.input)
		}
		return types.NewFrozenType(inner[0]), nil
	case "list":
		inner, err := p.readTypeArgs(name, 1)
		if err != nil {
			return nil, err
		}
		if inner[0].IsCollection() && inner[0].Code() != types.FROZEN {
			return nil, fmt.Errorf("lists cannot contain collections unless they are frozen")
		}
		return types.NewListType(inner[0]), nil
	case "set":
		inner, err := p.readTypeArgs(name, 1)
		if err != nil {
			return nil, err
		}
		if inner[0].IsCollection() && inner[0].Code() != types.FROZEN {
			return nil, fmt.Errorf("sets cannot contain collections unless they are frozen")
		}
		return types.NewSetType(inner[0]), nil
	case "map":
		inner, err := p.readTypeArgs(name, 2)
		if err != nil {
			return nil, err
		}
		if inner[0].IsCollection() {
			return nil, fmt.Errorf("map key types must be scalar")
		}
		if inner[1].IsCollection() && inner[1].Code() != types.FROZEN {
			return nil, fmt.Errorf("map values cannot be collections unless they are frozen")
		}
		return types.NewMapType(inner[0], inner[1]), nil
	case "tuple":
		inner, err := p.readTypeArgs(name, -1)
		if err != nil {
			return nil, err
		}
		return types.NewTupleType(inner...), nil
	default:
		if scalar, ok := scalarsByName[name]; ok {
			if p.peek() == '<' {
				return nil, fmt.Errorf("unexpected type arguments for scalar type '%s'", name)
			}
			return scalar, nil
		}
		if p.resolver != nil {
			if udt, ok := p.resolver(name); ok {
				return udt, nil
			}
		}
		return nil, fmt.Errorf("unknown data type name: '%s' in type '%s'", name, p.input)
	}
}

// readTypeArgs parses "<t1, t2, ...>" after a generic type name. A negative
// count accepts any number of arguments greater than zero.
func (p *typeParser) readTypeArgs(name string, count int) ([]types.CqlDataType, error) {
	if p.peek() != '<' {
		return nil, fmt.Errorf("data type definition missing in: '%s'", p.input)
	}
	p.pos++
	var args []types.CqlDataType
	for {
		t, err := p.parse()
		if err != nil {
			return nil, fmt.Errorf("failed to extract type for '%s': %w", name, err)
		}
		args = append(args, t)
		switch p.peek() {
		case ',':
			p.pos++
		case '>':
			p.pos++
			if count >= 0 && len(args) != count {
				return nil, fmt.Errorf("expected exactly %d types but found %d in: '%s'", count, len(args), p.input)
			}
			return args, nil
		default:
			return nil, fmt.Errorf("missing closing type bracket in: '%s'", p.input)
		}
	}
}

func (p *typeParser) readName() string {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' || c == '"' || c == '.' {
			p.pos++
			continue
		}
		break
	}
	return strings.ReplaceAll(p.input[start:p.pos], `"`, "")
}

func (p *typeParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}
