// Package types provides shared type definitions used across the indexer,
// query engine, and daemon surface.
//
// # Core Types
//
// Symbol represents a Go language construct (function, method, type, etc.)
// extracted from source code via AST parsing:
//
//	symbol := &types.Symbol{
//	    Name:      "ParseFile",
//	    Kind:      types.KindFunction,
//	    Package:   "parser",
//	    Signature: "func ParseFile(path string) (*ParseResult, error)",
//	}
//
// NodeRange is the language-agnostic structural unit a LanguageParser
// produces; the chunk builder slices file content along NodeRange
// boundaries:
//
//	node := types.NodeRange{Kind: types.NodeFunction, Symbol: "ParseFile", StartLine: 10, EndLine: 24}
//
// Chunk is the atomic retrieval unit stored in the metadata store and
// indexed in the vector store:
//
//	chunk := &types.Chunk{
//	    Path:    "internal/parser/parser.go",
//	    Kind:    types.ChunkFunction,
//	    Content: functionBody,
//	}
//
//	if err := chunk.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Query Results
//
// QueryResult combines a chunk with the scoring breakdown that produced its
// rank:
//
//	result := &types.QueryResult{
//	    ChunkID: "a1b2...",
//	    Rank:    1,
//	    Score:   0.92,
//	}
//
// Scores are normalized to [0, 1], with higher values indicating better
// matches.
package types
